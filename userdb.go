// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "sync"

// V3User is one USM user entry: its security level and the key material
// (or passphrases) needed to authenticate/decrypt traffic from it.
type V3User struct {
	Name string

	AuthProtocol AuthProtocol
	AuthKey      []byte // localized; derived from AuthPassphrase if empty

	PrivProtocol PrivProtocol
	PrivKey      []byte // localized; derived from PrivPassphrase if empty

	AuthPassphrase string
	PrivPassphrase string
}

// SecurityLevel reports the highest level this user is configured for.
func (u *V3User) SecurityLevel() MsgFlags {
	flags := MsgFlags(0)
	if u.AuthProtocol > AuthNone {
		flags |= FlagAuth
	}
	if u.PrivProtocol > PrivNone {
		flags |= FlagPriv
	}
	return flags
}

// localize fills in AuthKey/PrivKey from the configured passphrases for a
// given authoritative engine ID, caching the result on the user entry.
func (u *V3User) localize(engineID string) error {
	if u.AuthProtocol > AuthNone && len(u.AuthKey) == 0 {
		key, err := genLocalKey(u.AuthProtocol, u.AuthPassphrase, engineID)
		if err != nil {
			return err
		}
		u.AuthKey = key
	}
	if u.PrivProtocol > PrivNone && len(u.PrivKey) == 0 {
		key, err := genLocalPrivKey(u.PrivProtocol, u.AuthProtocol, u.PrivPassphrase, engineID)
		if err != nil {
			return err
		}
		u.PrivKey = key
	}
	return nil
}

// UserDB is a concurrency-safe registry of USM users keyed by user name,
// for an agent serving many users simultaneously.
type UserDB struct {
	mu       sync.RWMutex
	engineID string
	users    map[string]*V3User
}

// NewUserDB creates an empty database scoped to the given authoritative
// engine ID, used to localize every user's keys as they're added.
func NewUserDB(engineID string) *UserDB {
	return &UserDB{engineID: engineID, users: make(map[string]*V3User)}
}

// AddUser localizes u's keys against the database's engine ID and stores
// it, replacing any existing entry with the same name.
func (d *UserDB) AddUser(u *V3User) error {
	if err := u.localize(d.engineID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.Name] = u
	return nil
}

// RemoveUser deletes a user entry; a no-op if the name is unknown.
func (d *UserDB) RemoveUser(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, name)
}

// Lookup returns the named user, or (nil, false) if unknown.
func (d *UserDB) Lookup(name string) (*V3User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[name]
	return u, ok
}
