// Package schema creates the catalog tables in an empty library file.
// Libraries written by the downloader already have them; every statement is
// guarded with "if not exists" so running against those is harmless.
package schema

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

var (
	//go:embed migrations/*.sql
	migrations embed.FS

	// goose keeps its settings in package globals
	gooseLock sync.Mutex
)

func Migrate(db *sql.DB, logger logrus.FieldLogger) error {
	gooseLock.Lock()
	defer gooseLock.Unlock()

	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(logger)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("schema.Migrate: could not set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("schema.Migrate: %w", err)
	}

	return nil
}
