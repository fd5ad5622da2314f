// Package database implements the top-level façade: get/set/delete
// orchestration, WAL-backed durability, and MemTable-to-SSTable flush.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mkaluza/siltengine/internal/memtable"
	"github.com/mkaluza/siltengine/internal/querier"
	"github.com/mkaluza/siltengine/internal/sstable"
	"github.com/mkaluza/siltengine/internal/storeerr"
	"github.com/mkaluza/siltengine/internal/wal"
	"go.uber.org/zap"
)

// DefaultMaxMemTableSize is the default MemTable flush threshold: 10 MiB.
const DefaultMaxMemTableSize = 10 << 20

// DataExtension is the file extension SSTable data files are flushed
// with under a database's directory.
const DataExtension = "db"

// Entry is a point-read result: the key, its value, and the timestamp of
// the mutation that produced it.
type Entry struct {
	Key       []byte
	Value     []byte
	Timestamp uint64
}

// Database is the storage engine façade. It is not safe for concurrent
// mutation: callers must serialize Set/Delete/Get themselves (spec §5) —
// the mutex here only protects the façade's own in-process state
// transitions (swapping WAL + MemTable during a flush), not cross-call
// atomicity of a read observing a concurrent write.
type Database struct {
	mu sync.Mutex

	dir              string
	maxMemTableSize  int
	w                *wal.WAL
	mem              *memtable.Memtable
	log              *zap.SugaredLogger
	now              func() uint64
}

// Option configures Open.
type Option func(*Database)

// WithLogger injects a structured logger. A nil logger (the default)
// becomes a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(d *Database) { d.log = log }
}

// withClock overrides the microsecond clock; used by tests to control
// filename generation deterministically.
func withClock(now func() uint64) Option {
	return func(d *Database) { d.now = now }
}

// Open restores the WAL and MemTable from dir (per wal.RestoreFromDir)
// and returns a ready Database. maxMemTableSize of 0 uses
// DefaultMaxMemTableSize.
func Open(dir string, maxMemTableSize int, opts ...Option) (*Database, error) {
	if maxMemTableSize <= 0 {
		maxMemTableSize = DefaultMaxMemTableSize
	}

	d := &Database{
		dir:             dir,
		maxMemTableSize: maxMemTableSize,
		log:             zap.NewNop().Sugar(),
		now:             nowMicros,
	}
	for _, opt := range opts {
		opt(d)
	}

	w, mt, err := wal.RestoreFromDir(dir, d.now())
	if err != nil {
		return nil, fmt.Errorf("siltengine: restore wal: %w", err)
	}
	d.w = w
	d.mem = mt
	return d, nil
}

// Get consults the MemTable first; on a miss it constructs a fresh
// SSTable querier and queries the directory. A tombstone from either
// source is reported as not-present.
func (d *Database) Get(key []byte) (Entry, bool, error) {
	if len(key) == 0 {
		return Entry{}, false, storeerr.ErrEmptyKey
	}
	if d.w == nil {
		return Entry{}, false, storeerr.ErrClosed
	}

	if e, ok := d.mem.Get(key); ok {
		if e.Tombstone {
			return Entry{}, false, nil
		}
		return Entry{Key: e.Key, Value: e.Value, Timestamp: e.Timestamp}, true, nil
	}

	q := querier.New(d.dir, d.log)
	e, found, err := q.Query(key)
	if err != nil {
		return Entry{}, false, err
	}
	if !found || e.Tombstone {
		return Entry{}, false, nil
	}
	return Entry{Key: e.Key, Value: e.Value, Timestamp: e.Timestamp}, true, nil
}

// Set appends a value mutation to the WAL, flushes the WAL, applies it to
// the MemTable, and triggers a flush to SSTable if the MemTable has grown
// past its threshold. It returns the number of records written (always 1
// on success), matching the façade's public API contract (spec §6).
func (d *Database) Set(key, value []byte) (int, error) {
	if len(key) == 0 {
		return 0, storeerr.ErrEmptyKey
	}
	if d.w == nil {
		return 0, storeerr.ErrClosed
	}

	ts := d.now()
	if err := d.w.Set(key, value, ts); err != nil {
		return 0, err
	}
	if err := d.w.Flush(); err != nil {
		return 0, err
	}
	d.mem.Set(key, value, ts)

	if err := d.maybeFlush(); err != nil {
		return 0, err
	}
	return 1, nil
}

// Delete appends a tombstone to the WAL, flushes, applies it to the
// MemTable, and triggers a flush if needed. It returns the number of
// records deleted (always 1 on success).
func (d *Database) Delete(key []byte) (int, error) {
	if len(key) == 0 {
		return 0, storeerr.ErrEmptyKey
	}
	if d.w == nil {
		return 0, storeerr.ErrClosed
	}

	ts := d.now()
	if err := d.w.Delete(key, ts); err != nil {
		return 0, err
	}
	if err := d.w.Flush(); err != nil {
		return 0, err
	}
	d.mem.Delete(key, ts)

	if err := d.maybeFlush(); err != nil {
		return 0, err
	}
	return 1, nil
}

// maybeFlush flushes the MemTable to a new SSTable and rotates the WAL
// when the MemTable's size has reached maxMemTableSize. Write ordering
// matters: the SSTable is flushed to disk before the old WAL file is
// removed, so a crash between the two still recovers correctly — replay
// will re-populate the MemTable with entries also present in the new
// SSTable, and read-time tombstone/timestamp rules (Get consults the
// MemTable before any SSTable) make the duplication harmless (spec §4.9).
func (d *Database) maybeFlush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mem.Size() < d.maxMemTableSize {
		return nil
	}

	sstPath := filepath.Join(d.dir, fmt.Sprintf("%d.%s", d.now(), DataExtension))
	w, err := sstable.NewWriter(sstPath)
	if err != nil {
		return fmt.Errorf("siltengine: flush: create sstable: %w", err)
	}

	for _, e := range d.mem.Entries() {
		if err := w.Set(e); err != nil {
			w.Close()
			return fmt.Errorf("siltengine: flush: write entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		w.Close()
		return fmt.Errorf("siltengine: flush: flush sstable: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("siltengine: flush: close sstable: %w", err)
	}

	oldWALPath := d.w.Path()
	if err := d.w.Close(); err != nil {
		return fmt.Errorf("siltengine: flush: close wal: %w", err)
	}
	if err := os.Remove(oldWALPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("siltengine: flush: remove wal: %w", err)
	}

	newWAL, err := wal.OpenForAppend(d.dir, d.now())
	if err != nil {
		return fmt.Errorf("siltengine: flush: reopen wal: %w", err)
	}

	d.w = newWAL
	d.mem = memtable.New()
	d.log.Infow("flushed memtable", "sstable", sstPath)
	return nil
}

// Close releases the active WAL file handle.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return nil
	}
	err := d.w.Close()
	d.w = nil
	return err
}

// Dir returns the database's data directory, for collaborators (the
// compactor, the scheduler) that operate on the same directory.
func (d *Database) Dir() string {
	return d.dir
}

func nowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}
