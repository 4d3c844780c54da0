// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package repair rebuilds the materialized-path denormalization from the
// parent_id relation. It is the only code allowed to rewrite stored paths
// outside a normal mutation: legacy rows, corrupt paths flagged during
// reads, and bulk-loaded data all converge here. Soft-deleted rows are
// repaired too, so restores stay structurally sound.
package repair

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taxonomy/internal/treepath"
)

// Report summarizes one backfill run.
type Report struct {
	Scanned    int           `json:"scanned"`
	Repaired   int           `json:"repaired"`
	Unresolved []int64       `json:"unresolved,omitempty"`
	DryRun     bool          `json:"dry_run"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Backfiller recomputes path and depth columns.
type Backfiller struct {
	db *sql.DB
}

// NewBackfiller returns a Backfiller over the given pool.
func NewBackfiller(db *sql.DB) *Backfiller {
	return &Backfiller{db: db}
}

// row is the minimal projection needed to rebuild paths.
type row struct {
	id       int64
	parentID *int64
	path     string
	depth    int
}

// Run rebuilds every path/depth that disagrees with the parent_id chain.
// Updates are written in chunks of chunkSize rows per statement; dryRun
// reports what would change without writing. Rows whose ancestor chain
// does not terminate (dangling parent or parent_id cycle) are reported as
// unresolved and left untouched — they need manual intervention, not an
// automated guess.
func (b *Backfiller) Run(ctx context.Context, chunkSize int, dryRun bool) (*Report, error) {
	start := time.Now()
	if chunkSize < 1 {
		chunkSize = 500
	}

	rows, err := b.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Scanned: len(rows), DryRun: dryRun}

	byID := make(map[int64]*row, len(rows))
	for i := range rows {
		byID[rows[i].id] = &rows[i]
	}

	// Resolve each row's correct path by walking parent_id with memoization.
	// state: 0 unvisited, 1 in progress (cycle detector), 2 done.
	state := make(map[int64]int, len(rows))
	correct := make(map[int64]string, len(rows))
	var resolve func(r *row) (string, bool)
	resolve = func(r *row) (string, bool) {
		switch state[r.id] {
		case 2:
			return correct[r.id], correct[r.id] != ""
		case 1:
			return "", false // parent_id cycle
		}
		state[r.id] = 1
		defer func() { state[r.id] = 2 }()

		if r.parentID == nil {
			correct[r.id] = treepath.Encode("", r.id)
			return correct[r.id], true
		}
		parent, ok := byID[*r.parentID]
		if !ok {
			return "", false // dangling parent reference
		}
		parentPath, ok := resolve(parent)
		if !ok {
			return "", false
		}
		correct[r.id] = treepath.Encode(parentPath, r.id)
		return correct[r.id], true
	}

	var fixes []pathFix
	for i := range rows {
		r := &rows[i]
		path, ok := resolve(r)
		if !ok {
			report.Unresolved = append(report.Unresolved, r.id)
			continue
		}
		depth, err := treepath.DepthOf(path)
		if err != nil {
			return nil, fmt.Errorf("backfill computed invalid path for %d: %w", r.id, err)
		}
		if r.path != path || r.depth != depth {
			fixes = append(fixes, pathFix{id: r.id, path: path, depth: depth})
		}
	}
	report.Repaired = len(fixes)

	if dryRun || len(fixes) == 0 {
		report.Elapsed = time.Since(start)
		slog.Info("path backfill finished",
			"scanned", report.Scanned,
			"repaired", report.Repaired,
			"unresolved", len(report.Unresolved),
			"dry_run", dryRun,
		)
		return report, nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("backfill begin tx: %w", err)
	}
	defer tx.Rollback()

	for off := 0; off < len(fixes); off += chunkSize {
		end := off + chunkSize
		if end > len(fixes) {
			end = len(fixes)
		}
		if err := writeChunk(ctx, tx, fixes[off:end]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("backfill commit: %w", err)
	}

	report.Elapsed = time.Since(start)
	slog.Info("path backfill finished",
		"scanned", report.Scanned,
		"repaired", report.Repaired,
		"unresolved", len(report.Unresolved),
		"elapsed", report.Elapsed.String(),
	)
	return report, nil
}

// loadAll reads id, parent_id, path, depth for every row including
// trashed ones.
func (b *Backfiller) loadAll(ctx context.Context) ([]row, error) {
	res, err := b.db.QueryContext(ctx,
		`SELECT id, parent_id, path, depth FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backfill load: %w", err)
	}
	defer res.Close()

	var rows []row
	for res.Next() {
		var r row
		if err := res.Scan(&r.id, &r.parentID, &r.path, &r.depth); err != nil {
			return nil, fmt.Errorf("backfill scan: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, res.Err()
}

// pathFix is one row whose stored path or depth disagrees with the
// parent_id chain.
type pathFix struct {
	id    int64
	path  string
	depth int
}

// writeChunk applies one chunk of fixes with a single VALUES join.
func writeChunk(ctx context.Context, tx *sql.Tx, fixes []pathFix) error {
	var sb strings.Builder
	sb.WriteString(`UPDATE categories AS c SET path = f.path, depth = f.depth, updated_at = NOW() FROM (VALUES `)
	args := make([]any, 0, len(fixes)*3)
	for i, f := range fixes {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 3
		fmt.Fprintf(&sb, "($%d::bigint,$%d::text,$%d::int)", base+1, base+2, base+3)
		args = append(args, f.id, f.path, f.depth)
	}
	sb.WriteString(`) AS f(id, path, depth) WHERE c.id = f.id`)

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("backfill write chunk: %w", err)
	}
	return nil
}
