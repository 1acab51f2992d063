package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kalambet/ecoswap/internal/items"
)

// FileStore keeps records in a flat file using the `|f1|f2|f3|f4|f5|`
// encoding, records concatenated without separators.
//
// A single handle opened with O_APPEND is owned by the store; each record is
// written with one Write call under the write lock. Readers take the read
// lock, so a read sees the file either before or after an append, never a
// torn record.
type FileStore struct {
	path string

	mu sync.RWMutex
	f  *os.File
}

// OpenFile opens path for appending, creating it (and its directory) empty
// when absent.
func OpenFile(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("creating data directory", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, storageErr("opening record file", err)
	}
	return &FileStore{path: path, f: f}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Append(r items.Record) error {
	entry := Encode(items.Sanitize(r))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return storageErr("append", os.ErrClosed)
	}
	if _, err := s.f.WriteString(entry); err != nil {
		return storageErr("append", err)
	}
	if err := s.f.Sync(); err != nil {
		return storageErr("sync", err)
	}
	return nil
}

func (s *FileStore) ReadAll() ([]items.Record, error) {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if err != nil {
		return nil, storageErr("reading record file", err)
	}

	records, leftover := Decode(string(data))
	if leftover > 0 {
		slog.Debug("record file has incomplete trailing record", "path", s.path, "tokens", leftover)
	}
	return records, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Encode serializes a sanitized record as `|f1|f2|f3|f4|f5|`.
func Encode(r items.Record) string {
	f := r.Fields()
	var sb strings.Builder
	sb.WriteString(items.Delimiter)
	for _, v := range f {
		sb.WriteString(v)
		sb.WriteString(items.Delimiter)
	}
	return sb.String()
}

// Decode splits data on the delimiter, discards blank fragments, and groups
// the surviving tokens into records of items.FieldCount in encounter order.
// It returns the number of tokens in an incomplete trailing group, which are
// dropped.
func Decode(data string) ([]items.Record, int) {
	parts := strings.Split(data, items.Delimiter)
	tokens := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			tokens = append(tokens, p)
		}
	}

	n := len(tokens) / items.FieldCount
	records := make([]items.Record, 0, n)
	for i := 0; i+items.FieldCount <= len(tokens); i += items.FieldCount {
		var f [items.FieldCount]string
		copy(f[:], tokens[i:i+items.FieldCount])
		records = append(records, items.FromFields(f))
	}
	return records, len(tokens) % items.FieldCount
}

// String implements fmt.Stringer for log output.
func (s *FileStore) String() string { return fmt.Sprintf("file:%s", s.path) }
