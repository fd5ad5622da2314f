// Package sstable implements the on-disk SSTable writer and reader pair:
// an append-only data file of concatenated entries alongside a sparse
// offset index (internal/sparseindex).
package sstable

import (
	"bufio"
	"os"

	"github.com/mkaluza/siltengine/internal/entry"
	"github.com/mkaluza/siltengine/internal/sparseindex"
)

// IndexSuffix is appended to a data-file path to derive its index path.
const IndexSuffix = ".idx"

// IndexPath returns the sparse-index path for a given SSTable data path.
func IndexPath(dataPath string) string {
	return dataPath + IndexSuffix
}

// Writer appends entries to an SSTable data file and maintains its sparse
// index as it goes. It is not safe for concurrent use.
type Writer struct {
	path      string
	indexPath string
	file      *os.File
	bw        *bufio.Writer
	index     *sparseindex.Index
	offset    uint64 // byte offset the next Set call will write at
}

// NewWriter opens (or creates) the data file at path in append mode,
// loads the existing index if any, and records the current data-file
// length as the writer's starting offset.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	idxPath := IndexPath(path)
	idx, err := sparseindex.Open(idxPath)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Writer{
		path:      path,
		indexPath: idxPath,
		file:      f,
		bw:        bufio.NewWriter(f),
		index:     idx,
		offset:    uint64(info.Size()),
	}, nil
}

// Set writes e to the data file and records key -> offset in the index.
//
// The offset recorded is the position e's bytes START at, and the
// writer's running offset is advanced by exactly the record's encoded
// length. A prior revision of this writer instead advanced the offset by
// the buffered stream's current position after the write, which
// accumulates stale offsets across calls (see spec §9, acknowledged
// source bug area); tracking the pre-write offset and the record's own
// encoded length avoids that entirely.
func (w *Writer) Set(e entry.Entry) error {
	recordOffset := w.offset
	if err := entry.WriteTo(w.bw, e); err != nil {
		return err
	}
	w.index.Insert(e.Key, recordOffset)
	w.offset += uint64(entry.EncodedLen(e))
	return nil
}

// ContainsKey delegates to the writer's in-memory index.
func (w *Writer) ContainsKey(key []byte) bool {
	return w.index.ContainsKey(key)
}

// Index exposes the writer's index for callers that need to scan or
// inspect it without an extra disk round-trip.
func (w *Writer) Index() *sparseindex.Index {
	return w.index
}

// Path returns the writer's data-file path.
func (w *Writer) Path() string {
	return w.path
}

// Flush persists the index and flushes the buffered data writer. The two
// operations target different files and may run concurrently; both must
// succeed for Flush to succeed.
func (w *Writer) Flush() error {
	type result struct{ err error }
	indexDone := make(chan result, 1)
	go func() {
		indexDone <- result{w.index.Persist(w.indexPath)}
	}()

	dataErr := w.bw.Flush()
	if dataErr == nil {
		dataErr = w.file.Sync()
	}

	indexRes := <-indexDone
	if indexRes.err != nil {
		return indexRes.err
	}
	return dataErr
}

// Close flushes and closes the underlying data file. It does not persist
// the index; callers that want durability must call Flush first.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.bw.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
