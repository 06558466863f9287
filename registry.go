// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"sort"
	"sync"
)

// ObjectProvider is a pluggable source of managed-object values, the seam
// that lets an agent be backed by anything from a static MIB snapshot to
// a live device driver. Get/GetNext/Set mirror the semantics of the
// corresponding PDU operations one-to-one.
type ObjectProvider interface {
	// Get returns the value at oid, or (SmiValue{}, false) if nothing is
	// registered there (the agent reports a NoSuchObject value).
	Get(oid Oid) (SmiValue, bool)

	// GetNext returns the lexicographically next OID strictly after oid
	// and its value, or (nil, SmiValue{}, false) at the end of the view.
	GetNext(oid Oid) (Oid, SmiValue, bool)

	// CanSet reports, without mutating anything, whether a Set(oid,
	// value) would succeed (NoError) or why it would be rejected
	// (NotWritable/WrongType/NoAccess/...). The agent's SetRequest
	// handler calls this over every varbind in a request before calling
	// Set on any of them, per RFC 1905 §4.2.5's validate-then-commit
	// discipline: a Phase-1 rejection must never mutate state, even when
	// earlier varbinds in the same request would have been acceptable.
	CanSet(oid Oid, value SmiValue) ErrorStatus

	// Set stores value at oid, returning an ErrorStatus (NoError on
	// success). Called only after CanSet has passed for every varbind in
	// the request; if a Set fails, the agent restores the varbinds it
	// already applied by calling Set again with their prior values.
	Set(oid Oid, value SmiValue) ErrorStatus
}

// Registry is the default, in-memory ObjectProvider: an ordered table of
// OID -> SmiValue kept sorted for GetNext/walk support. agent.go talks to
// it only through the ObjectProvider interface.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]SmiValue
	order    []string // entries' keys, kept sorted by OID
	readOnly map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]SmiValue), readOnly: make(map[string]bool)}
}

// SetReadOnly marks oid as rejecting SetRequest, so a single agent can
// mix writable and read-only managed objects.
func (r *Registry) SetReadOnly(oid Oid, readOnly bool) {
	key := oid.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	if readOnly {
		r.readOnly[key] = true
	} else {
		delete(r.readOnly, key)
	}
}

// CanSet reports whether oid is writable, without storing value. This is
// the only check Registry itself performs before a write (no per-OID type
// constraints), so it mirrors Set's read-only gate exactly.
func (r *Registry) CanSet(oid Oid, value SmiValue) ErrorStatus {
	key := oid.String()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.readOnly[key] {
		return NotWritable
	}
	return NoError
}

// Set stores or replaces the value at oid, inserting it into the sorted
// order if new, unless oid has been marked read-only via SetReadOnly, in
// which case it rejects the write with NotWritable and leaves the stored
// value unchanged.
func (r *Registry) Set(oid Oid, value SmiValue) ErrorStatus {
	key := oid.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readOnly[key] {
		return NotWritable
	}
	if _, exists := r.entries[key]; !exists {
		i := sort.Search(len(r.order), func(i int) bool { return compareOIDStrings(r.order[i], key) >= 0 })
		r.order = append(r.order, "")
		copy(r.order[i+1:], r.order[i:])
		r.order[i] = key
	}
	r.entries[key] = value
	return NoError
}

// Get returns the value registered at exactly oid.
func (r *Registry) Get(oid Oid) (SmiValue, bool) {
	key := oid.String()
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// GetNext returns the entry immediately following oid in sorted order.
func (r *Registry) GetNext(oid Oid) (Oid, SmiValue, bool) {
	key := oid.String()
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := sort.Search(len(r.order), func(i int) bool { return compareOIDStrings(r.order[i], key) > 0 })
	if i >= len(r.order) {
		return nil, SmiValue{}, false
	}
	nextKey := r.order[i]
	next, err := ParseOid(nextKey)
	if err != nil {
		return nil, SmiValue{}, false
	}
	return next, r.entries[nextKey], true
}

// Delete removes the entry at oid, if any.
func (r *Registry) Delete(oid Oid) {
	key := oid.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; !exists {
		return
	}
	delete(r.entries, key)
	i := sort.Search(len(r.order), func(i int) bool { return compareOIDStrings(r.order[i], key) >= 0 })
	if i < len(r.order) && r.order[i] == key {
		r.order = append(r.order[:i], r.order[i+1:]...)
	}
}

// ProviderMux routes agent requests across several ObjectProviders, each
// mounted at an OID subtree prefix, kept in an ordered table by lex
// compare. Get/CanSet/Set route to the provider whose prefix covers the
// target OID; GetNext probes providers in prefix order and returns the
// first in-subtree successor, which for disjoint mounted subtrees is the
// global least successor. The mux itself satisfies ObjectProvider, so
// muxes nest.
type ProviderMux struct {
	mu     sync.RWMutex
	mounts []muxMount // sorted by prefix
}

type muxMount struct {
	prefix   Oid
	provider ObjectProvider
}

// NewProviderMux creates an empty mux.
func NewProviderMux() *ProviderMux {
	return &ProviderMux{}
}

// Mount registers provider as the owner of the subtree rooted at prefix,
// replacing any provider previously mounted at exactly that prefix.
func (m *ProviderMux) Mount(prefix Oid, provider ObjectProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.mounts), func(i int) bool { return m.mounts[i].prefix.Compare(prefix) >= 0 })
	if i < len(m.mounts) && m.mounts[i].prefix.Equal(prefix) {
		m.mounts[i].provider = provider
		return
	}
	m.mounts = append(m.mounts, muxMount{})
	copy(m.mounts[i+1:], m.mounts[i:])
	m.mounts[i] = muxMount{prefix: prefix.Clone(), provider: provider}
}

// Unmount removes the provider mounted at exactly prefix, if any.
func (m *ProviderMux) Unmount(prefix Oid) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.mounts), func(i int) bool { return m.mounts[i].prefix.Compare(prefix) >= 0 })
	if i < len(m.mounts) && m.mounts[i].prefix.Equal(prefix) {
		m.mounts = append(m.mounts[:i], m.mounts[i+1:]...)
	}
}

func (m *ProviderMux) providerFor(oid Oid) (ObjectProvider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mt := range m.mounts {
		if mt.prefix.IsPrefixOf(oid) {
			return mt.provider, true
		}
	}
	return nil, false
}

// Get routes to the provider whose mounted prefix covers oid.
func (m *ProviderMux) Get(oid Oid) (SmiValue, bool) {
	p, ok := m.providerFor(oid)
	if !ok {
		return SmiValue{}, false
	}
	return p.Get(oid)
}

// GetNext returns the least OID strictly greater than oid held by any
// mounted provider. Providers are probed in prefix order; each returns
// only OIDs within its own subtree, so with disjoint mounts the first hit
// is the global successor, and the provider covering oid itself (whose
// prefix sorts no later than any prefix beyond oid) is preferred first.
func (m *ProviderMux) GetNext(oid Oid) (Oid, SmiValue, bool) {
	m.mu.RLock()
	mounts := make([]muxMount, len(m.mounts))
	copy(mounts, m.mounts)
	m.mu.RUnlock()

	for _, mt := range mounts {
		if next, val, ok := mt.provider.GetNext(oid); ok {
			return next, val, true
		}
	}
	return nil, SmiValue{}, false
}

// CanSet routes the Phase-1 probe; an OID no mounted provider covers is
// not writable.
func (m *ProviderMux) CanSet(oid Oid, value SmiValue) ErrorStatus {
	p, ok := m.providerFor(oid)
	if !ok {
		return NotWritable
	}
	return p.CanSet(oid, value)
}

// Set routes the Phase-2 commit.
func (m *ProviderMux) Set(oid Oid, value SmiValue) ErrorStatus {
	p, ok := m.providerFor(oid)
	if !ok {
		return NotWritable
	}
	return p.Set(oid, value)
}

// compareOIDStrings orders two dotted-decimal OID strings by numeric
// sub-identifier rather than byte value, so "1.3.6.1.2.1.2" sorts before
// "1.3.6.1.2.1.10".
func compareOIDStrings(a, b string) int {
	oa, erra := ParseOid(a)
	ob, errb := ParseOid(b)
	if erra != nil || errb != nil {
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	}
	return oa.Compare(ob)
}
