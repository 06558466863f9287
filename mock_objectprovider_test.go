// Mock of ObjectProvider in MockGen's output shape.
// Source: registry.go

package snmpcore

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"
)

// MockObjectProvider is a mock of the ObjectProvider interface.
// Hand-maintained in mockgen's output shape since this module does not
// invoke `go generate` as part of its build.
type MockObjectProvider struct {
	ctrl     *gomock.Controller
	recorder *MockObjectProviderMockRecorder
}

// MockObjectProviderMockRecorder is the mock recorder for MockObjectProvider.
type MockObjectProviderMockRecorder struct {
	mock *MockObjectProvider
}

// NewMockObjectProvider creates a new mock instance.
func NewMockObjectProvider(ctrl *gomock.Controller) *MockObjectProvider {
	mock := &MockObjectProvider{ctrl: ctrl}
	mock.recorder = &MockObjectProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockObjectProvider) EXPECT() *MockObjectProviderMockRecorder {
	return m.recorder
}

// Get mocks base method.
func (m *MockObjectProvider) Get(oid Oid) (SmiValue, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", oid)
	ret0, _ := ret[0].(SmiValue)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockObjectProviderMockRecorder) Get(oid interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockObjectProvider)(nil).Get), oid)
}

// GetNext mocks base method.
func (m *MockObjectProvider) GetNext(oid Oid) (Oid, SmiValue, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetNext", oid)
	ret0, _ := ret[0].(Oid)
	ret1, _ := ret[1].(SmiValue)
	ret2, _ := ret[2].(bool)
	return ret0, ret1, ret2
}

// GetNext indicates an expected call of GetNext.
func (mr *MockObjectProviderMockRecorder) GetNext(oid interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetNext", reflect.TypeOf((*MockObjectProvider)(nil).GetNext), oid)
}

// CanSet mocks base method.
func (m *MockObjectProvider) CanSet(oid Oid, value SmiValue) ErrorStatus {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CanSet", oid, value)
	ret0, _ := ret[0].(ErrorStatus)
	return ret0
}

// CanSet indicates an expected call of CanSet.
func (mr *MockObjectProviderMockRecorder) CanSet(oid, value interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CanSet", reflect.TypeOf((*MockObjectProvider)(nil).CanSet), oid, value)
}

// Set mocks base method.
func (m *MockObjectProvider) Set(oid Oid, value SmiValue) ErrorStatus {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Set", oid, value)
	ret0, _ := ret[0].(ErrorStatus)
	return ret0
}

// Set indicates an expected call of Set.
func (mr *MockObjectProviderMockRecorder) Set(oid, value interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Set", reflect.TypeOf((*MockObjectProvider)(nil).Set), oid, value)
}
