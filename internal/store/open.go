package store

import (
	"context"
	"fmt"

	"github.com/erazemk/menza/internal/db"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	SQLitePath    string
	PostgresURL   string
	MongoURI      string
	MongoDatabase string
	LocalPath     string
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		database, err := db.Open(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(database); err != nil {
			database.Close()
			return nil, err
		}
		return NewSQLite(database), nil
	case BackendPostgres:
		if opts.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend requires DATABASE_URL")
		}
		return ConnectPostgres(ctx, opts.PostgresURL)
	case BackendMongo:
		return ConnectMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	case BackendLocal:
		return OpenLocal(opts.LocalPath)
	default:
		return nil, fmt.Errorf("unknown menu backend %q", opts.Backend)
	}
}
