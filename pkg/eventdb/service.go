// EventDB archives persisted events in SQLite so a restarted collector can
// pick up where it left off. Rows are keyed by their position in the event
// store, which makes writing the same batch twice harmless.
// Only the persistence worker writes to it.
package eventdb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type EventDB struct {
	db        *sql.DB
	sessionID string
}

// Open creates or opens the archive at path and applies migrations.
func Open(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to archive: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	return &EventDB{db: db, sessionID: uuid.NewString()}, nil
}

// SessionID identifies the rows written by this process.
func (e *EventDB) SessionID() string {
	return e.sessionID
}

func (e *EventDB) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func (e *EventDB) Name() string {
	return "archive"
}
