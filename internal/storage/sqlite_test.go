package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/kalambet/ecoswap/internal/items"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSQLiteMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestSQLiteMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) || len(v1) == 0 {
		t.Errorf("migration count changed or empty: %d -> %d", len(v1), len(v2))
	}
}

func TestSQLiteAppendReadAll(t *testing.T) {
	s := openTestSQLite(t)

	for i := 0; i < 3; i++ {
		r := items.Record{
			ProductName:  fmt.Sprintf("item %d", i),
			Description:  "desc | with pipe",
			ContactName:  "  Lee ",
			ContactEmail: "lee@example.com",
			ContactPhone: "5550100",
		}
		if err := s.Append(r); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	got, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i, r := range got {
		if r.ProductName != fmt.Sprintf("item %d", i) {
			t.Errorf("record %d: ProductName = %q, want insertion order", i, r.ProductName)
		}
		if r.Description != "desc  with pipe" {
			t.Errorf("record %d: Description = %q, delimiter not stripped", i, r.Description)
		}
		if r.ContactName != "Lee" {
			t.Errorf("record %d: ContactName = %q, whitespace not trimmed", i, r.ContactName)
		}
	}
}

func TestSQLiteReadAll_Empty(t *testing.T) {
	s := openTestSQLite(t)

	got, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ReadAll on empty store = %v, want empty non-nil slice", got)
	}
}

func TestSQLiteConcurrentAppend(t *testing.T) {
	s := openTestSQLite(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Append(items.Record{
				ProductName: fmt.Sprintf("p%d", i), Description: "d", ContactName: "n",
				ContactEmail: "e@x.io", ContactPhone: "1",
			}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != n {
		t.Errorf("got %d records, want %d", len(got), n)
	}
}
