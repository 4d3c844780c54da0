// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// insert.go bulk-loads a generated plan into PostgreSQL. Real ids are
// reserved from the categories sequence up front so paths can be written
// in the same multi-row INSERT as the rows themselves.
package gen

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taxonomy/internal/treepath"
)

// insertBatchSize bounds the rows per INSERT statement; pgx limits
// statements to 65535 parameters and each row uses 8.
const insertBatchSize = 1000

// Summary is the machine-readable result of a generation run, suitable
// for CI gating.
type Summary struct {
	Requested   int           `json:"requested"`
	Generated   int           `json:"generated"`
	Roots       int           `json:"roots"`
	Actual      map[int]int   `json:"depth_distribution"`
	Theoretical map[int]int   `json:"theoretical_distribution"`
	Elapsed     time.Duration `json:"elapsed"`
	DryRun      bool          `json:"dry_run"`
}

// Inserter writes plans to the database.
type Inserter struct {
	db *sql.DB
}

// NewInserter returns a plan inserter for the given pool.
func NewInserter(db *sql.DB) *Inserter {
	return &Inserter{db: db}
}

// Insert validates and bulk-loads a plan in one transaction. With dryRun
// the plan is validated and summarized but nothing is written.
func (ins *Inserter) Insert(ctx context.Context, plan *Plan, dryRun bool) (*Summary, error) {
	start := time.Now()

	if err := plan.ValidateNoOrphans(); err != nil {
		return nil, fmt.Errorf("generated plan is inconsistent: %w", err)
	}

	summary := &Summary{
		Requested:   plan.Spec.Total,
		Generated:   len(plan.Nodes),
		Roots:       plan.Roots,
		Actual:      plan.PerDepth,
		Theoretical: plan.Theoretical,
		DryRun:      dryRun,
	}

	if dryRun {
		summary.Elapsed = time.Since(start)
		slog.Info("tree generation dry run", "nodes", summary.Generated, "roots", summary.Roots)
		return summary, nil
	}

	tx, err := ins.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bulk insert begin tx: %w", err)
	}
	defer tx.Rollback()

	ids, err := reserveIDs(ctx, tx, len(plan.Nodes))
	if err != nil {
		return nil, err
	}

	// Ordinal n maps to ids[n-1]. Plan order puts parents before
	// children, so parent paths are always resolved by the time a
	// child row is built.
	paths := make(map[int64]string, len(plan.Nodes))
	type row struct {
		id       int64
		parentID *int64
		name     string
		slug     string
		position int
		depth    int
		path     string
	}
	rows := make([]row, len(plan.Nodes))
	for i, n := range plan.Nodes {
		id := ids[n.Ordinal-1]
		var parentID *int64
		parentPath := ""
		if n.Parent != 0 {
			pid := ids[n.Parent-1]
			parentID = &pid
			parentPath = paths[n.Parent]
		}
		path := treepath.Encode(parentPath, id)
		paths[n.Ordinal] = path
		rows[i] = row{
			id:       id,
			parentID: parentID,
			name:     n.Name,
			slug:     fmt.Sprintf("%s-%d", n.Slug, id),
			position: n.Position,
			depth:    n.Depth,
			path:     path,
		}
	}

	for off := 0; off < len(rows); off += insertBatchSize {
		end := off + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[off:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO categories (id, parent_id, name, slug, status, position, depth, path) VALUES `)
		args := make([]any, 0, len(batch)*8)
		for i, r := range batch {
			if i > 0 {
				sb.WriteString(",")
			}
			base := i * 8
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
			args = append(args, r.id, r.parentID, r.name, r.slug, true, r.position, r.depth, r.path)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return nil, fmt.Errorf("bulk insert batch at %d: %w", off, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("bulk insert commit: %w", err)
	}

	summary.Elapsed = time.Since(start)
	slog.Info("tree generated",
		"nodes", summary.Generated,
		"roots", summary.Roots,
		"elapsed", summary.Elapsed.String(),
	)
	return summary, nil
}

// reserveIDs draws n fresh ids from the categories sequence so the bulk
// insert can write explicit ids and paths together.
func reserveIDs(ctx context.Context, tx *sql.Tx, n int) ([]int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT nextval('categories_id_seq') FROM generate_series(1, $1)`, n)
	if err != nil {
		return nil, fmt.Errorf("reserve ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, n)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reserved id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != n {
		return nil, fmt.Errorf("reserved %d ids, wanted %d", len(ids), n)
	}
	return ids, nil
}
