// Package querier implements the newest-first point-query path across the
// immutable SSTables in a directory.
package querier

import (
	"os"
	"sort"

	"github.com/mkaluza/siltengine/internal/entry"
	"github.com/mkaluza/siltengine/internal/fsutil"
	"github.com/mkaluza/siltengine/internal/sstable"
	"go.uber.org/zap"
)

// DataExtension is the file extension for SSTable data files.
const DataExtension = "db"

// Querier walks the SSTables under a directory, newest filename first,
// and returns the first hit for a key.
type Querier struct {
	dir string
	log *zap.SugaredLogger
}

// New returns a Querier rooted at dir. A nil logger is replaced with a
// no-op one, so the querier is usable without a configured logging stack.
func New(dir string, log *zap.SugaredLogger) *Querier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Querier{dir: dir, log: log}
}

// Query opens each SSTable under the querier's directory, newest first by
// filename, and returns the first hit for key (including a tombstone —
// callers interpret it). It returns ok=false if no file contains key.
//
// A missing file discovered mid-query (the compactor may have just
// unlinked it) is treated as "this file has nothing", not a hard error
// (spec §7's pragmatic race mitigation, revisited at the call site — see
// spec §9 item 2 and DESIGN.md for why this package still surfaces other
// I/O failures instead of folding them all into "not found").
func (q *Querier) Query(key []byte) (e entry.Entry, ok bool, err error) {
	paths, err := fsutil.ListByExtension(q.dir, DataExtension)
	if err != nil {
		return entry.Entry{}, false, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	for _, path := range paths {
		r, openErr := sstable.NewReader(path)
		if openErr != nil {
			if os.IsNotExist(openErr) {
				// The file vanished between directory listing and open —
				// almost certainly a concurrent compaction unlinking an
				// input. Skip it rather than fail the whole query.
				continue
			}
			return entry.Entry{}, false, openErr
		}

		got, found := r.Get(key)
		closeErr := r.Close()
		if closeErr != nil {
			q.log.Warnw("querier: closing sstable reader", "path", path, "error", closeErr)
		}
		if found {
			return got, true, nil
		}
	}

	return entry.Entry{}, false, nil
}
