package sstable

import (
	"bufio"
	"io"
	"os"

	"github.com/mkaluza/siltengine/internal/entry"
	"github.com/mkaluza/siltengine/internal/sparseindex"
)

// Reader provides point-get and full-scan access to one immutable
// SSTable via its sparse index.
type Reader struct {
	path  string
	file  *os.File
	index *sparseindex.Index
}

// NewReader opens the data file at path for random access and loads its
// accompanying index. A corrupt index is a hard error (spec §7:
// "Index deserialization failure: propagates as a hard error at open
// time").
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	idx, err := sparseindex.Open(IndexPath(path))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{path: path, file: f, index: idx}, nil
}

// Path returns the reader's data-file path.
func (r *Reader) Path() string {
	return r.path
}

// Index exposes the reader's in-memory index.
func (r *Reader) Index() *sparseindex.Index {
	return r.index
}

// Close closes the underlying data file.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Get returns the entry stored for key, if the index has it. It reports
// ok=false both when the key is absent from the index and when decoding
// at the recorded offset fails — a malformed record at query time is
// treated the same as "not here" rather than propagated, matching entry
// codec's read_from contract (it never raises).
func (r *Reader) Get(key []byte) (e entry.Entry, ok bool) {
	offset, found := r.index.Get(key)
	if !found {
		return entry.Entry{}, false
	}
	return r.Read(offset)
}

// Read decodes one entry starting at offset in the data file.
func (r *Reader) Read(offset uint64) (entry.Entry, bool) {
	sr := io.NewSectionReader(r.file, int64(offset), 1<<62)
	return entry.ReadFrom(bufio.NewReader(sr))
}

// Handler is invoked once per decoded entry during Scan. Returning a
// non-nil error short-circuits the scan with that error.
type Handler interface {
	Handle(e entry.Entry) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(e entry.Entry) error

// Handle calls f(e).
func (f HandlerFunc) Handle(e entry.Entry) error {
	return f(e)
}

// Scan iterates the index's (key, offset) pairs in key-ascending order,
// decodes each entry, and invokes h on every successfully decoded one. It
// iterates over a snapshot of the index's pairs, so h is free to mutate
// writers and indexes while the scan runs — the compactor's handler
// appends to its output writer while scanning an input table.
func (r *Reader) Scan(h Handler) error {
	pairs := r.index.Entries()
	for _, p := range pairs {
		e, ok := r.Read(p.Offset)
		if !ok {
			continue
		}
		if err := h.Handle(e); err != nil {
			return err
		}
	}
	return nil
}
