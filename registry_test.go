// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetSet(t *testing.T) {
	r := NewRegistry()
	oid := Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}
	status := r.Set(oid, OctetStringFromString("Test System Description"))
	assert.Equal(t, NoError, status)

	v, ok := r.Get(oid)
	require.True(t, ok)
	assert.Equal(t, OctetStringFromString("Test System Description"), v)

	_, ok = r.Get(Oid{1, 3, 6, 1, 2, 1, 999, 999, 0})
	assert.False(t, ok)
}

func TestRegistryGetNextOrdering(t *testing.T) {
	r := NewRegistry()
	r.Set(Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}, Integer(1))
	r.Set(Oid{1, 3, 6, 1, 2, 1, 2, 2, 1, 10, 1}, Integer(2))
	r.Set(Oid{1, 3, 6, 1, 2, 1, 2, 2, 1, 10, 2}, Integer(3))

	next, val, ok := r.GetNext(Oid{1, 3, 6, 1, 2, 1, 1, 1, 0})
	require.True(t, ok)
	assert.Equal(t, Oid{1, 3, 6, 1, 2, 1, 2, 2, 1, 10, 1}, next)
	assert.Equal(t, Integer(2), val)

	next, _, ok = r.GetNext(next)
	require.True(t, ok)
	assert.Equal(t, Oid{1, 3, 6, 1, 2, 1, 2, 2, 1, 10, 2}, next)

	_, _, ok = r.GetNext(next)
	assert.False(t, ok, "walking past the last entry exhausts the view")
}

func TestRegistryNumericOrderingNotLexicographicString(t *testing.T) {
	// ".1.3.6.1.2.1.2" would sort after ".1.3.6.1.2.1.10" under plain
	// string comparison; compareOIDStrings must use numeric OID order.
	r := NewRegistry()
	r.Set(Oid{1, 3, 6, 1, 2, 1, 10}, Integer(10))
	r.Set(Oid{1, 3, 6, 1, 2, 1, 2}, Integer(2))

	next, val, ok := r.GetNext(Oid{1, 3, 6, 1, 2, 1, 1})
	require.True(t, ok)
	assert.Equal(t, Oid{1, 3, 6, 1, 2, 1, 2}, next)
	assert.Equal(t, Integer(2), val)
}

// A Set against an OID marked read-only returns NotWritable and leaves
// the stored value unchanged.
func TestSetReadOnly(t *testing.T) {
	r := NewRegistry()
	oid := Oid{1, 3, 6, 1, 2, 1, 1, 5, 0}
	r.Set(oid, OctetStringFromString("original"))
	r.SetReadOnly(oid, true)

	status := r.Set(oid, OctetStringFromString("attempted overwrite"))
	assert.Equal(t, NotWritable, status)

	v, ok := r.Get(oid)
	require.True(t, ok)
	assert.Equal(t, OctetStringFromString("original"), v)
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry()
	oid := Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}
	r.Set(oid, Integer(1))
	r.Delete(oid)

	_, ok := r.Get(oid)
	assert.False(t, ok)

	_, _, ok = r.GetNext(Oid{1, 3, 6, 1})
	assert.False(t, ok)
}

func TestProviderMuxRoutesAndWalksAcrossSubtrees(t *testing.T) {
	system := NewRegistry()
	sysDescr := Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}
	system.Set(sysDescr, OctetStringFromString("Test System Description"))

	interfaces := NewRegistry()
	ifIndex1 := Oid{1, 3, 6, 1, 2, 1, 2, 2, 1, 1, 1}
	interfaces.Set(ifIndex1, Integer(1))

	mux := NewProviderMux()
	mux.Mount(Oid{1, 3, 6, 1, 2, 1, 1}, system)
	mux.Mount(Oid{1, 3, 6, 1, 2, 1, 2}, interfaces)

	v, ok := mux.Get(sysDescr)
	require.True(t, ok)
	assert.Equal(t, OctetStringFromString("Test System Description"), v)

	_, ok = mux.Get(Oid{1, 3, 6, 1, 2, 1, 99, 0})
	assert.False(t, ok, "an OID outside every mounted subtree misses")

	// GetNext from inside the first subtree crosses into the second once
	// the first is exhausted.
	next, val, ok := mux.GetNext(sysDescr)
	require.True(t, ok)
	assert.Equal(t, ifIndex1, next)
	assert.Equal(t, Integer(1), val)

	// GetNext from before every mount lands on the first subtree's first
	// entry, preferring the earliest prefix.
	next, _, ok = mux.GetNext(Oid{1, 3, 6, 1, 2, 1})
	require.True(t, ok)
	assert.Equal(t, sysDescr, next)

	_, _, ok = mux.GetNext(ifIndex1)
	assert.False(t, ok, "walking past the last mounted entry exhausts the view")
}

func TestProviderMuxSetRouting(t *testing.T) {
	system := NewRegistry()
	sysName := Oid{1, 3, 6, 1, 2, 1, 1, 5, 0}
	system.Set(sysName, OctetStringFromString("old-name"))

	mux := NewProviderMux()
	mux.Mount(Oid{1, 3, 6, 1, 2, 1, 1}, system)

	assert.Equal(t, NoError, mux.CanSet(sysName, OctetStringFromString("new-name")))
	assert.Equal(t, NoError, mux.Set(sysName, OctetStringFromString("new-name")))
	v, _ := system.Get(sysName)
	assert.Equal(t, OctetStringFromString("new-name"), v)

	unclaimed := Oid{1, 3, 6, 1, 4, 1, 9, 0}
	assert.Equal(t, NotWritable, mux.CanSet(unclaimed, Integer(1)))
	assert.Equal(t, NotWritable, mux.Set(unclaimed, Integer(1)))
}

func TestProviderMuxUnmount(t *testing.T) {
	r := NewRegistry()
	oid := Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}
	r.Set(oid, Integer(1))

	prefix := Oid{1, 3, 6, 1, 2, 1, 1}
	mux := NewProviderMux()
	mux.Mount(prefix, r)
	_, ok := mux.Get(oid)
	require.True(t, ok)

	mux.Unmount(prefix)
	_, ok = mux.Get(oid)
	assert.False(t, ok)
}

// TestMockObjectProviderDrivesAgentGet uses the gomock provider mock to
// verify the agent calls Get exactly once per requested varbind and
// returns the provider's value, without needing a real Registry.
func TestMockObjectProviderDrivesAgentGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := NewMockObjectProvider(ctrl)
	oid := Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}
	provider.EXPECT().Get(oid).Return(OctetStringFromString("mocked"), true)

	agent := NewAgent(AgentConfig{Community: "public", EngineID: "agent-1"}, provider)
	req := PDU{Type: GetRequest, RequestID: 1, Varbinds: VarbindList{{Oid: oid, Value: Null()}}}
	resp := agent.dispatch(req, nil)

	assert.Equal(t, NoError, resp.ErrorStatus)
	require.Len(t, resp.Varbinds, 1)
	assert.Equal(t, OctetStringFromString("mocked"), resp.Varbinds[0].Value)
}

// TestMockObjectProviderDrivesAgentSetPhase1RejectionNoMutation pins down
// the case the plain Registry can't distinguish from a real commit
// failure: a second varbind that Phase 1 rejects (NotWritable) must stop
// the whole request before Phase 2 ever calls Set on the first, valid
// varbind. No Set call is expected on the mock at all.
func TestMockObjectProviderDrivesAgentSetPhase1RejectionNoMutation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := NewMockObjectProvider(ctrl)
	okOid := Oid{1, 3, 6, 1, 2, 1, 1, 4, 0}
	failOid := Oid{1, 3, 6, 1, 2, 1, 1, 5, 0}

	gomock.InOrder(
		provider.EXPECT().CanSet(okOid, OctetStringFromString("after")).Return(NoError),
		provider.EXPECT().CanSet(failOid, OctetStringFromString("rejected")).Return(NotWritable),
	)

	agent := NewAgent(AgentConfig{Community: "public", EngineID: "agent-1"}, provider)
	req := PDU{Type: SetRequest, RequestID: 9, Varbinds: VarbindList{
		{Oid: okOid, Value: OctetStringFromString("after")},
		{Oid: failOid, Value: OctetStringFromString("rejected")},
	}}
	resp := agent.dispatch(req, nil)

	assert.Equal(t, NotWritable, resp.ErrorStatus)
	assert.EqualValues(t, 2, resp.ErrorIndex)
}

// TestMockObjectProviderDrivesAgentSetPhase2Rollback exercises a genuine
// Phase-2 commit failure: both varbinds clear CanSet, the first Set
// succeeds, the second Set fails, and the agent rolls the first back to
// its pre-write value before reporting CommitFailed.
func TestMockObjectProviderDrivesAgentSetPhase2Rollback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := NewMockObjectProvider(ctrl)
	okOid := Oid{1, 3, 6, 1, 2, 1, 1, 4, 0}
	failOid := Oid{1, 3, 6, 1, 2, 1, 1, 5, 0}

	gomock.InOrder(
		provider.EXPECT().CanSet(okOid, OctetStringFromString("after")).Return(NoError),
		provider.EXPECT().CanSet(failOid, OctetStringFromString("rejected")).Return(NoError),
		provider.EXPECT().Get(okOid).Return(OctetStringFromString("before"), true),
		provider.EXPECT().Get(failOid).Return(SmiValue{}, false),
		provider.EXPECT().Set(okOid, OctetStringFromString("after")).Return(NoError),
		provider.EXPECT().Set(failOid, OctetStringFromString("rejected")).Return(CommitFailed),
		provider.EXPECT().Set(okOid, OctetStringFromString("before")).Return(NoError),
	)

	agent := NewAgent(AgentConfig{Community: "public", EngineID: "agent-1"}, provider)
	req := PDU{Type: SetRequest, RequestID: 9, Varbinds: VarbindList{
		{Oid: okOid, Value: OctetStringFromString("after")},
		{Oid: failOid, Value: OctetStringFromString("rejected")},
	}}
	resp := agent.dispatch(req, nil)

	assert.Equal(t, CommitFailed, resp.ErrorStatus)
	assert.EqualValues(t, 2, resp.ErrorIndex)
}
