// Package kv is the public, string-keyed convenience wrapper around
// internal/database's Database façade.
package kv

import (
	"errors"
	"fmt"
	"os"

	"github.com/mkaluza/siltengine/internal/database"
	"github.com/mkaluza/siltengine/internal/storeerr"
)

var (
	// ErrNotFound is returned when a key is not found
	ErrNotFound = errors.New("kv: key not found")
	// ErrClosed is returned when the DB is closed
	ErrClosed = errors.New("kv: db is closed")
)

// DB represents a key-value database.
// It provides a simple interface for storing and retrieving key-value pairs.
type DB struct {
	db *database.Database
}

// Open opens a database at the given path.
// If the directory doesn't exist, it will be created (the underlying
// Database façade itself requires a pre-existing directory, per spec
// §6's "ambient requirements" — this package absorbs that for callers).
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("kv: path cannot be empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("kv: failed to create data dir: %w", err)
	}

	inner, err := database.Open(path, database.DefaultMaxMemTableSize)
	if err != nil {
		return nil, fmt.Errorf("kv: failed to open database: %w", err)
	}

	return &DB{db: inner}, nil
}

// Close closes the database and releases all resources.
func (db *DB) Close() error {
	if db.db == nil {
		return ErrClosed
	}
	return db.db.Close()
}

// Put stores a key-value pair in the database.
// If the key already exists, its value will be updated.
func (db *DB) Put(key, value string) error {
	if db.db == nil {
		return ErrClosed
	}
	_, err := db.db.Set([]byte(key), []byte(value))
	if err != nil {
		if errors.Is(err, storeerr.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("kv: put failed: %w", err)
	}
	return nil
}

// Get retrieves the value for a given key.
// Returns ErrNotFound if the key doesn't exist or has been deleted.
func (db *DB) Get(key string) (string, error) {
	if db.db == nil {
		return "", ErrClosed
	}

	e, found, err := db.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, storeerr.ErrClosed) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("kv: get failed: %w", err)
	}
	if !found {
		return "", ErrNotFound
	}

	return string(e.Value), nil
}

// Delete removes a key from the database.
// If the key doesn't exist, no error is returned (a tombstone is still recorded).
func (db *DB) Delete(key string) error {
	if db.db == nil {
		return ErrClosed
	}
	_, err := db.db.Delete([]byte(key))
	if err != nil {
		if errors.Is(err, storeerr.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("kv: delete failed: %w", err)
	}
	return nil
}
