// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"taxonomy/internal/database"
	"taxonomy/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "taxonomy")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "taxonomy")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. The categories
// table is truncated on entry and cleanup so tests see a clean tree.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	truncateCategories(t, db)
	t.Cleanup(func() {
		truncateCategories(t, db)
		db.Close()
	})
	return db
}

func truncateCategories(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE categories RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("failed to truncate categories: %v", err)
	}
}

// mustCreate inserts a category in its own transaction and returns it.
// Helper for arranging tree fixtures.
func mustCreate(t *testing.T, st *CategoryStore, name string, parent *models.Category) *models.Category {
	t.Helper()
	ctx := context.Background()

	tx, err := st.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	var parentID *int64
	parentPath := ""
	depth := 0
	if parent != nil {
		parentID = &parent.ID
		parentPath = parent.Path
		depth = parent.Depth + 1
	}
	position, err := st.NextPosition(ctx, tx, parentID)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	c, err := st.Insert(ctx, tx, &models.Category{
		ParentID: parentID,
		Name:     name,
		Slug:     name, // fixtures use names that are already slugs
		Status:   true,
		Position: position,
		Depth:    depth,
	}, parentPath)
	if err != nil {
		t.Fatalf("insert %q: %v", name, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return c
}
