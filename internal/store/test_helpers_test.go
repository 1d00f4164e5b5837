package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/datacollector/internal/ndn"
)

var builtAt = time.Date(2026, 10, 19, 14, 3, 7, 0, time.UTC)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates an unsigned record with the given sequence.
func createTestRecord(seq uint64, content string) *ndn.Data {
	return &ndn.Data{
		Name:      ndn.MustParseName("/org/bld1/room5/sensor7/repoA").AppendNumber(seq),
		Freshness: time.Second,
		Content:   []byte(content),
	}
}
