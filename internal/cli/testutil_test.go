package cli

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/pm33/abtest/internal/migrate"
)

var dbCounter atomic.Int64

// testDB creates an in-memory SQLite database with all migrations
// applied. Each call gets its own database so tests don't share state.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:clitest%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := migrate.RunAll(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
