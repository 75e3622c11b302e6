package sql

import (
	"path/filepath"
	"testing"

	"github.com/workbenchapp/worknet-proposer/internal/storage"
	"github.com/workbenchapp/worknet-proposer/internal/storage/storagetest"
)

var _ storage.Storage = (*Store)(nil)

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		store, err := New("sqlite3", filepath.Join(t.TempDir(), "journal.db"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		return store
	})
}
