// Package wal implements the write-ahead log: an append-only segment of
// encoded mutation records, crash recovery by replaying all segments
// under a directory, and segment rotation as the Database façade flushes
// its MemTable.
package wal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mkaluza/siltengine/internal/entry"
	"github.com/mkaluza/siltengine/internal/fsutil"
	"github.com/mkaluza/siltengine/internal/memtable"
)

// Extension is the file extension for WAL segments.
const Extension = "wal"

// WAL is one append-only segment, named by the microsecond timestamp at
// which it was created. Durability is explicit: writes are buffered and
// only become durable once Flush returns.
type WAL struct {
	mu   sync.Mutex
	path string
	file *os.File
	bw   *bufio.Writer
}

// OpenForAppend creates a new WAL segment named "<micros_now>.wal" under
// dir and opens it for append.
func OpenForAppend(dir string, nowMicros uint64) (*WAL, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d.%s", nowMicros, Extension))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &WAL{path: path, file: f, bw: bufio.NewWriter(f)}, nil
}

// Path returns the segment's file path.
func (w *WAL) Path() string {
	return w.path
}

// Set encodes a value mutation and appends it to the log buffer.
func (w *WAL) Set(key, value []byte, ts uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return entry.WriteTo(w.bw, entry.Entry{Key: key, Value: value, Timestamp: ts})
}

// Delete encodes a tombstone and appends it to the log buffer.
func (w *WAL) Delete(key []byte, ts uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return entry.WriteTo(w.bw, entry.Entry{Key: key, Tombstone: true, Timestamp: ts})
}

// Flush flushes the buffered writer. After Flush returns, every prior
// successful Set/Delete is durable on disk.
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the underlying file without an implicit flush; callers
// that need durability must Flush first.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// RestoreFromDir enumerates every .wal file under dir, sorted ascending
// by filename (equal to temporal order since filenames are microsecond
// timestamps), replays each segment's entries in order into both a fresh
// WAL segment and a fresh MemTable, flushes the new WAL, deletes all old
// segments, and returns the new WAL and MemTable.
//
// Two entries for the same key resolve last-writer-wins naturally,
// because the MemTable's Set/Delete both overwrite any existing entry for
// the key (spec §4.7).
func RestoreFromDir(dir string, nowMicros uint64) (*WAL, *memtable.Memtable, error) {
	paths, err := fsutil.ListByExtension(dir, Extension)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(paths)

	mt := memtable.New()
	newWAL, err := OpenForAppend(dir, nowMicros)
	if err != nil {
		return nil, nil, err
	}

	for _, path := range paths {
		if err := replaySegment(path, newWAL, mt); err != nil {
			return nil, nil, err
		}
	}

	if err := newWAL.Flush(); err != nil {
		return nil, nil, err
	}

	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, nil, err
		}
	}

	return newWAL, mt, nil
}

// replaySegment decodes every entry in the segment at path, in order, and
// applies each to both dst (the new WAL segment) and mt (the recovered
// MemTable). A decode failure mid-stream ends the segment cleanly — it is
// treated as a truncated tail left by a crash, not an error (spec §7).
func replaySegment(path string, dst *WAL, mt *memtable.Memtable) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		e, ok := entry.ReadFrom(r)
		if !ok {
			break
		}
		if e.Tombstone {
			if err := dst.Delete(e.Key, e.Timestamp); err != nil {
				return err
			}
			mt.Delete(e.Key, e.Timestamp)
		} else {
			if err := dst.Set(e.Key, e.Value, e.Timestamp); err != nil {
				return err
			}
			mt.Set(e.Key, e.Value, e.Timestamp)
		}
	}
	return nil
}
