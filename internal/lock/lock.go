/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package lock provides the per-account lock table used by the transfer
// executor. Locks are created on first use and are never removed, so the
// table grows with the number of distinct accounts ever locked.
package lock

import (
	"sync"
)

// Table maps account IDs to their mutexes. The coarse mutex guards only
// lookup and creation, never the critical section of a caller.
type Table struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTable() *Table {
	return &Table{locks: make(map[string]*sync.Mutex)}
}

func (t *Table) get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

// Lock acquires the lock of a single account and returns its release func.
func (t *Table) Lock(key string) func() {
	l := t.get(key)
	l.Lock()
	return l.Unlock
}

// LockPair acquires the locks of both accounts in ascending key order and
// returns a func that releases them in reverse order. Every caller locking
// the same pair therefore requests the shared lock first, so two transfers
// in opposite directions cannot wait on each other.
//
// Locking a key against itself takes the lock once.
func (t *Table) LockPair(a, b string) func() {
	if a == b {
		return t.Lock(a)
	}
	first, second := Order(a, b)
	unlockFirst := t.Lock(first)
	unlockSecond := t.Lock(second)
	return func() {
		unlockSecond()
		unlockFirst()
	}
}

// Order returns a and b in the global lock order.
func Order(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Size returns the number of locks created so far.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
