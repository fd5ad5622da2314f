// Package compactor implements the background SSTable merge: selecting
// small data files, merging them newest-first into one output table, and
// patching cross-table tombstones out of every index left in the
// directory. See spec §4.10.
package compactor

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mkaluza/siltengine/internal/entry"
	"github.com/mkaluza/siltengine/internal/fsutil"
	"github.com/mkaluza/siltengine/internal/sparseindex"
	"github.com/mkaluza/siltengine/internal/sstable"
	"go.uber.org/zap"
)

func nowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}

// Compactor merges SSTables below SizeThreshold under Dir, on demand.
// It holds no state across calls; the scheduler decides cadence.
type Compactor struct {
	dir           string
	sizeThreshold int64
	ext           string
	log           *zap.SugaredLogger
	now           func() uint64
}

// New returns a Compactor rooted at dir, merging files with extension ext
// (without a leading dot, e.g. "db") under sizeThresholdBytes. A nil
// logger becomes a no-op logger.
func New(dir string, sizeThresholdBytes int64, ext string, log *zap.SugaredLogger, opts ...Option) *Compactor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Compactor{dir: dir, sizeThreshold: sizeThresholdBytes, ext: ext, log: log, now: nowMicros}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Compactor.
type Option func(*Compactor)

// withClock overrides the microsecond clock; used by tests.
func withClock(now func() uint64) Option {
	return func(c *Compactor) { c.now = now }
}

// Compact runs one compaction cycle (spec §4.10's state machine:
// selecting -> writing -> flushed -> unlinking-inputs ->
// patching-peer-indexes). It returns nil if there was nothing to do.
func (c *Compactor) Compact() error {
	candidates, err := fsutil.ListByExtensionUnderSize(c.dir, c.ext, c.sizeThreshold)
	if err != nil {
		return fmt.Errorf("compactor: selecting: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))

	outPath := fmt.Sprintf("%s/%d.%s", c.dir, c.now(), c.ext)
	out, err := sstable.NewWriter(outPath)
	if err != nil {
		return fmt.Errorf("compactor: creating output: %w", err)
	}

	deletedKeys := make(map[string][]byte)
	for _, path := range candidates {
		if err := c.mergeInto(out, path, deletedKeys); err != nil {
			out.Close()
			return fmt.Errorf("compactor: writing: merging %s: %w", path, err)
		}
	}

	if err := out.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("compactor: flushed: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("compactor: flushed: close: %w", err)
	}

	if err := c.unlinkInputs(candidates); err != nil {
		return fmt.Errorf("compactor: unlinking-inputs: %w", err)
	}

	if err := c.patchPeerIndexes(deletedKeys); err != nil {
		return fmt.Errorf("compactor: patching-peer-indexes: %w", err)
	}

	c.log.Infow("compaction cycle complete", "output", outPath, "inputs", len(candidates), "tombstones", len(deletedKeys))
	return nil
}

// mergeInto scans one candidate input (newest-to-oldest order is the
// caller's responsibility) into out, recording tombstoned keys into
// deletedKeys instead of copying them forward.
func (c *Compactor) mergeInto(out *sstable.Writer, path string, deletedKeys map[string][]byte) error {
	r, err := sstable.NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Scan(sstable.HandlerFunc(func(e entry.Entry) error {
		if e.Tombstone {
			deletedKeys[string(e.Key)] = e.Key
			return nil
		}
		if out.ContainsKey(e.Key) {
			return nil
		}
		return out.Set(e)
	}))
}

// unlinkInputs removes every input data file. Spec §7: per-file removal
// failures inside this loop are logged and the loop continues rather than
// aborting the whole cycle — the output SSTable is already durable, so a
// stray input left behind is a cleanup nuisance, not a correctness bug.
// The input's .idx file is deliberately removed too: spec §9 flags
// leaving it behind as a cleanup bug to fix, not a behavior to preserve.
func (c *Compactor) unlinkInputs(paths []string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.log.Warnw("compactor: removing input data file", "path", path, "error", err)
		}
		idxPath := sstable.IndexPath(path)
		if err := os.Remove(idxPath); err != nil && !os.IsNotExist(err) {
			c.log.Warnw("compactor: removing orphaned input index file", "path", idxPath, "error", err)
		}
	}
	return nil
}

// patchPeerIndexes removes every tombstoned key from every index in the
// directory, including the just-written output's own index: a key
// tombstoned in a newer input can still have an older, live version in
// another input that mergeInto copied into the output before the
// tombstone was seen, so the output's index needs the same patching
// every other table gets. Matches original_source's
// remove_deleted_keys, which enumerates every .idx including the new
// output (spec §4.10 step 7).
func (c *Compactor) patchPeerIndexes(deletedKeys map[string][]byte) error {
	if len(deletedKeys) == 0 {
		return nil
	}

	dataFiles, err := fsutil.ListByExtension(c.dir, c.ext)
	if err != nil {
		return err
	}

	for _, path := range dataFiles {
		idxPath := sstable.IndexPath(path)
		idx, err := sparseindex.Open(idxPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", idxPath, err)
		}

		changed := false
		for _, key := range deletedKeys {
			if idx.ContainsKey(key) {
				idx.Delete(key)
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := idx.Persist(idxPath); err != nil {
			return fmt.Errorf("persisting %s: %w", idxPath, err)
		}
	}
	return nil
}
