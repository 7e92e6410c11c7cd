package store

import (
	"testing"

	"github.com/erazemk/menza/internal/db"
)

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewSQLite(db.NewTestDB(t))
	})
}
