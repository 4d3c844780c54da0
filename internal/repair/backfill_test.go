// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package repair

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	_ "github.com/jackc/pgx/v5/stdlib"

	"taxonomy/internal/database"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "taxonomy")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "taxonomy")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

// testDB opens the test database and runs migrations; skipped when the
// database is unreachable.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("cannot open test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("test database unavailable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	reset := func() {
		if _, err := db.Exec("TRUNCATE categories RESTART IDENTITY CASCADE"); err != nil {
			t.Fatalf("failed to truncate categories: %v", err)
		}
	}
	reset()
	t.Cleanup(func() {
		reset()
		db.Close()
	})
	return db
}

// insertRaw writes a row the way legacy data would arrive: parent_id set,
// path and depth left wrong or empty.
func insertRaw(t *testing.T, db *sql.DB, id int64, parentID *int64, path string, depth int) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO categories (id, parent_id, name, slug, path, depth) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, parentID, "n", "n-"+itoa(id), path, depth)
	if err != nil {
		t.Fatalf("insert raw row %d: %v", id, err)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func fetch(t *testing.T, db *sql.DB, id int64) (path string, depth int) {
	t.Helper()
	if err := db.QueryRow(`SELECT path, depth FROM categories WHERE id = $1`, id).Scan(&path, &depth); err != nil {
		t.Fatalf("fetch row %d: %v", id, err)
	}
	return path, depth
}

func TestRunRepairsEmptyAndCorruptPaths(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id1, id2 := int64(1), int64(2)
	insertRaw(t, db, 1, nil, "", 0)            // legacy row, empty path
	insertRaw(t, db, 2, &id1, "garbage", 5)    // corrupt path, wrong depth
	insertRaw(t, db, 3, &id2, "/9/9/3/", 2)    // wrong ancestry in path
	insertRaw(t, db, 4, nil, "/4/", 0)         // already correct

	report, err := NewBackfiller(db).Run(ctx, 500, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Scanned != 4 || report.Repaired != 3 {
		t.Errorf("report = %+v, want scanned 4 repaired 3", report)
	}
	if len(report.Unresolved) != 0 {
		t.Errorf("unresolved = %v, want none", report.Unresolved)
	}

	want := map[int64]struct {
		path  string
		depth int
	}{
		1: {"/1/", 0},
		2: {"/1/2/", 1},
		3: {"/1/2/3/", 2},
		4: {"/4/", 0},
	}
	for id, w := range want {
		path, depth := fetch(t, db, id)
		if path != w.path || depth != w.depth {
			t.Errorf("row %d = %q depth %d, want %q depth %d", id, path, depth, w.path, w.depth)
		}
	}

	// A second run finds nothing left to repair.
	again, err := NewBackfiller(db).Run(ctx, 500, false)
	if err != nil {
		t.Fatal(err)
	}
	if again.Repaired != 0 {
		t.Errorf("second run repaired %d rows, want 0", again.Repaired)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	insertRaw(t, db, 1, nil, "", 0)

	report, err := NewBackfiller(db).Run(ctx, 500, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.DryRun || report.Repaired != 1 {
		t.Errorf("report = %+v, want dry_run with 1 pending repair", report)
	}

	path, _ := fetch(t, db, 1)
	if path != "" {
		t.Errorf("dry run wrote path %q", path)
	}
}

func TestRunReportsParentCycles(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id1, id2 := int64(1), int64(2)
	insertRaw(t, db, 1, nil, "", 0)
	insertRaw(t, db, 2, &id1, "", 0)
	insertRaw(t, db, 3, nil, "/3/", 0)

	// Close the loop: 1 -> 2 -> 1.
	if _, err := db.Exec(`UPDATE categories SET parent_id = $1 WHERE id = $2`, id2, id1); err != nil {
		t.Fatal(err)
	}

	report, err := NewBackfiller(db).Run(ctx, 500, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Unresolved) != 2 {
		t.Fatalf("unresolved = %v, want both cycle members", report.Unresolved)
	}

	// Cycle members are left exactly as they were.
	for _, id := range []int64{1, 2} {
		path, _ := fetch(t, db, id)
		if path != "" {
			t.Errorf("unresolved row %d was rewritten to %q", id, path)
		}
	}
	// The healthy row is unaffected.
	if path, _ := fetch(t, db, 3); path != "/3/" {
		t.Errorf("row 3 path = %q, want /3/", path)
	}
}

func TestRunChunksUpdates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	var prev *int64
	for i := int64(1); i <= 7; i++ {
		id := i
		insertRaw(t, db, id, prev, "", 0)
		p := id
		prev = &p
	}

	// chunkSize 2 forces four separate UPDATE statements.
	report, err := NewBackfiller(db).Run(ctx, 2, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Repaired != 7 {
		t.Errorf("repaired = %d, want 7", report.Repaired)
	}

	path, depth := fetch(t, db, 7)
	if path != "/1/2/3/4/5/6/7/" || depth != 6 {
		t.Errorf("deepest row = %q depth %d", path, depth)
	}
}
