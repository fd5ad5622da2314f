// Package memtable implements the in-memory sorted mutable table: entries
// keyed uniquely by key, kept in strictly ascending lexicographic order,
// with tombstone semantics and a running size estimate in bytes.
package memtable

import (
	"bytes"
	"sort"
	"sync"

	"github.com/mkaluza/siltengine/internal/entry"
	"github.com/mkaluza/siltengine/internal/utils"
)

// perEntryOverhead is the fixed per-entry accounting from spec §3:
// 16 bytes for the timestamp plus 1 byte for the tombstone flag.
const perEntryOverhead = 17

// Memtable is an ordered, uniquely-keyed sequence of entries backed by a
// sorted slice. Lookups and inserts use binary search over the slice,
// matching the "ordered container ... binary search yields either the
// exact position of an existing entry or the insertion position"
// contract in spec §4.6. It is safe for concurrent use.
type Memtable struct {
	mu      sync.RWMutex
	entries []entry.Entry
	size    int
}

// New returns an empty memtable.
func New() *Memtable {
	return &Memtable{}
}

// search returns the index of key in mt.entries, or the position key
// should be inserted at, and whether it was found. Caller must hold mt.mu.
func (mt *Memtable) search(key []byte) (pos int, found bool) {
	pos = sort.Search(len(mt.entries), func(i int) bool {
		return bytes.Compare(mt.entries[i].Key, key) >= 0
	})
	found = pos < len(mt.entries) && bytes.Equal(mt.entries[pos].Key, key)
	return pos, found
}

// Get returns the stored entry for key, including a tombstone if that is
// the most recent mutation, or ok=false if key has never been written.
func (mt *Memtable) Get(key []byte) (e entry.Entry, ok bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	pos, found := mt.search(key)
	if !found {
		return entry.Entry{}, false
	}
	return mt.entries[pos], true
}

// Set inserts or overwrites the entry for key with value at timestamp ts.
func (mt *Memtable) Set(key, value []byte, ts uint64) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	pos, found := mt.search(key)
	e := entry.Entry{Key: utils.CopyBytes(key), Value: utils.CopyBytes(value), Timestamp: ts}

	if found {
		mt.size -= valueLen(mt.entries[pos])
		mt.size += len(value)
		mt.entries[pos] = e
		return
	}

	mt.insertAt(pos, e)
	mt.size += len(key) + len(value) + perEntryOverhead
}

// Delete replaces the entry for key with a tombstone at timestamp ts.
func (mt *Memtable) Delete(key []byte, ts uint64) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	pos, found := mt.search(key)
	e := entry.Entry{Key: utils.CopyBytes(key), Tombstone: true, Timestamp: ts}

	if found {
		mt.size -= valueLen(mt.entries[pos])
		mt.entries[pos] = e
		return
	}

	mt.insertAt(pos, e)
	mt.size += len(key) + perEntryOverhead
}

// valueLen returns len(value_if_present) for size accounting: a
// tombstone contributes zero, a live value contributes its byte length.
func valueLen(e entry.Entry) int {
	if e.Tombstone {
		return 0
	}
	return len(e.Value)
}

// insertAt splices e into mt.entries at pos. Caller must hold mt.mu.
func (mt *Memtable) insertAt(pos int, e entry.Entry) {
	mt.entries = append(mt.entries, entry.Entry{})
	copy(mt.entries[pos+1:], mt.entries[pos:])
	mt.entries[pos] = e
}

// Len returns the number of entries (including tombstones).
func (mt *Memtable) Len() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return len(mt.entries)
}

// Size returns the current size estimate in bytes, per spec §3's
// invariant: sum over all entries of len(key) + len(value_if_present) +
// 17 (timestamp + tombstone flag).
func (mt *Memtable) Size() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.size
}

// Entries returns a snapshot of the memtable's entries in key-ascending
// order, for flushing to an SSTable.
func (mt *Memtable) Entries() []entry.Entry {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	out := make([]entry.Entry, len(mt.entries))
	copy(out, mt.entries)
	return out
}
