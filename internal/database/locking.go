package database

import (
	"sort"
	"sync"
)

// AccountLocker abstracts how account rows are held for a read-check-write
// sequence. Two deployments exist:
//
//   - RowLocker for PostgreSQL: the SELECT carries FOR UPDATE and the row
//     lock is held by the database until the enclosing transaction commits
//     or rolls back. Acquire is a no-op.
//   - SerialLocker for single-writer embedded stores that cannot lock rows:
//     a keyed per-account mutex serializes operations in-process so that
//     non-negativity holds even without database row locks.
//
// Both acquire multi-account locks in sorted-id order, so transfer ordering
// and atomicity guarantees hold regardless of which locker is in use.
type AccountLocker interface {
	// Clause returns the suffix appended to account SELECTs ("" or " FOR UPDATE").
	Clause() string
	// Acquire takes in-process locks on the given account ids in sorted order
	// and returns a release function. Release only after the enclosing
	// database transaction has committed or rolled back.
	Acquire(accountIDs ...string) (release func())
}

// RowLocker relies on native row-level locks (SELECT ... FOR UPDATE).
type RowLocker struct{}

func (RowLocker) Clause() string { return " FOR UPDATE" }

func (RowLocker) Acquire(accountIDs ...string) func() { return func() {} }

// SerialLocker serializes same-account operations with per-account mutexes.
type SerialLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSerialLocker() *SerialLocker {
	return &SerialLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *SerialLocker) Clause() string { return "" }

func (l *SerialLocker) Acquire(accountIDs ...string) func() {
	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	// Fixed total order over account ids prevents cross-waits between
	// concurrent multi-account operations.
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := l.lockFor(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *SerialLocker) lockFor(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
