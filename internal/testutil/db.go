package testutil

import (
	"path/filepath"
	"testing"

	"github.com/neotechkk/smashpoint/internal/store"
)

// NewTestStore creates a temporary SQLite store with migrations applied.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
