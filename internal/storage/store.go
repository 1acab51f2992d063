package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kalambet/ecoswap/internal/items"
)

// ErrStorage wraps every failure to read or write the backing store.
var ErrStorage = errors.New("storage error")

// Store is an append-only record log. Records are never updated or deleted
// in place; duplicates are allowed.
type Store interface {
	// Append sanitizes r and durably appends it. Failures wrap ErrStorage.
	Append(r items.Record) error
	// ReadAll returns every complete record, oldest first.
	ReadAll() ([]items.Record, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Options selects and locates a Store backend.
type Options struct {
	Backend  string
	DataDir  string
	FileName string
}

// Open returns the Store selected by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		name := opts.FileName
		if name == "" {
			name = "data.txt"
		}
		return OpenFile(filepath.Join(opts.DataDir, name))
	case BackendSQLite:
		return OpenSQLite(opts.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
