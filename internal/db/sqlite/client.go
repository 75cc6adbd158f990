package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/provnuk88/Web3bot/internal/infra"
	"github.com/provnuk88/Web3bot/resources"
)

type sqliteClient struct {
	db      *sqlx.DB
	timeout time.Duration
	mutex   sync.RWMutex
}

// NewSQLiteClient opens (creating if needed) the bot database under the
// work dir and applies pending migrations. opTimeout bounds every store
// call issued through this client.
func NewSQLiteClient(dbPath string, opTimeout time.Duration) *sqliteClient {
	dbx, err := sqlx.Open("sqlite", filepath.Join(infra.GetWorkDir(), dbPath))
	if err != nil {
		log.WithError(err).Fatalln("cant open db")
	}
	dbx.SetMaxOpenConns(42)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		log.WithError(err).Fatalln("migrate up failed")
	}
	if n > 0 {
		log.Infof("applied %d migrations!", n)
	}

	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}
	return &sqliteClient{db: dbx, timeout: opTimeout}
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

// opCtx bounds a single store operation; a timed-out call surfaces as a
// regular error to the caller and is never retried here.
func (c *sqliteClient) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}
