package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"taxonomy/internal/treepath"
)

// demoCategory is one row of the development seed tree.
type demoCategory struct {
	name     string
	slug     string
	parent   string // slug of the parent, "" for roots
	position int
}

// demoTree is a small three-level catalog used for local development.
var demoTree = []demoCategory{
	{name: "Electronics", slug: "electronics", position: 0},
	{name: "Phones", slug: "phones", parent: "electronics", position: 0},
	{name: "Smartphones", slug: "smartphones", parent: "phones", position: 0},
	{name: "Feature Phones", slug: "feature-phones", parent: "phones", position: 1},
	{name: "Laptops", slug: "laptops", parent: "electronics", position: 1},
	{name: "Clothing", slug: "clothing", position: 1},
	{name: "Men", slug: "men", parent: "clothing", position: 0},
	{name: "Women", slug: "women", parent: "clothing", position: 1},
}

// Seed populates the database with a small demo category tree for
// development. It is a no-op when any categories already exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	// Parents appear before children in demoTree, so one pass suffices.
	// Paths are derived from the parent's freshly inserted row.
	idBySlug := make(map[string]int64, len(demoTree))
	pathBySlug := make(map[string]string, len(demoTree))
	depthBySlug := make(map[string]int, len(demoTree))

	for _, c := range demoTree {
		var parentID *int64
		parentPath := ""
		depth := 0
		if c.parent != "" {
			pid, ok := idBySlug[c.parent]
			if !ok {
				return fmt.Errorf("seed: parent %q not yet inserted for %q", c.parent, c.slug)
			}
			parentID = &pid
			parentPath = pathBySlug[c.parent]
			depth = depthBySlug[c.parent] + 1
		}

		var id int64
		err := tx.QueryRow(`
			INSERT INTO categories (parent_id, name, slug, position, depth)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, parentID, c.name, c.slug, c.position, depth).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed insert %q: %w", c.slug, err)
		}

		path := treepath.Encode(parentPath, id)
		if _, err := tx.Exec(`UPDATE categories SET path = $1 WHERE id = $2`, path, id); err != nil {
			return fmt.Errorf("seed set path %q: %w", c.slug, err)
		}

		idBySlug[c.slug] = id
		pathBySlug[c.slug] = path
		depthBySlug[c.slug] = depth
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo category tree", "categories", len(demoTree))
	return nil
}
