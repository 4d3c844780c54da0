// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store implements category persistence on PostgreSQL. All tree
// lookups are materialized-path prefix operations; no query recurses over
// parent_id.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"taxonomy/internal/models"
	"taxonomy/internal/treepath"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so mutation helpers can run
// inside the transaction owned by the mutation service.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db         *sql.DB
	maxPerPage int
}

// NewCategoryStore returns a new CategoryStore. maxPerPage clamps listing
// page sizes to bound query cost.
func NewCategoryStore(db *sql.DB, maxPerPage int) *CategoryStore {
	if maxPerPage <= 0 {
		maxPerPage = 100
	}
	return &CategoryStore{db: db, maxPerPage: maxPerPage}
}

// DB exposes the underlying pool for transaction management by callers.
func (s *CategoryStore) DB() *sql.DB {
	return s.db
}

const categoryColumns = `id, parent_id, name, slug, description,
	meta_title, meta_description, meta_keywords,
	status, position, depth, path, created_at, updated_at, deleted_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.ParentID, &c.Name, &c.Slug, &c.Description,
		&c.MetaTitle, &c.MetaDescription, &c.MetaKeywords,
		&c.Status, &c.Position, &c.Depth, &c.Path,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCategories(rows *sql.Rows) ([]models.Category, error) {
	defer rows.Close()
	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a live category by ID. Pass withTrashed to include
// soft-deleted rows (used by structural repair tooling).
func (s *CategoryStore) FindByID(ctx context.Context, id int64, withTrashed bool) (*models.Category, error) {
	return findByID(ctx, s.db, id, withTrashed)
}

// findByID is the dbtx-aware lookup used inside mutation transactions.
func findByID(ctx context.Context, q dbtx, id int64, withTrashed bool) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	if !withTrashed {
		query += ` AND deleted_at IS NULL`
	}
	c, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// findByIDForUpdate locks the row for the duration of the transaction so
// concurrent moves of overlapping subtrees serialize at the database.
func findByIDForUpdate(ctx context.Context, q dbtx, id int64) (*models.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find category for update: %w", err)
	}
	return c, nil
}

// Paginate returns one page of categories matching the filter, newest
// roots first within position order. perPage is clamped to the configured
// maximum.
func (s *CategoryStore) Paginate(ctx context.Context, filter models.CategoryFilter, page, perPage int) (*models.CategoryPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	if perPage > s.maxPerPage {
		perPage = s.maxPerPage
	}

	where, args := buildFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM categories` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM categories%s ORDER BY depth, position, id LIMIT $%d OFFSET $%d`,
		categoryColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("paginate categories: %w", err)
	}
	items, err := collectCategories(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + perPage - 1) / perPage
	return &models.CategoryPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// buildFilter translates a CategoryFilter into a WHERE clause. Absent
// fields impose no constraint.
func buildFilter(f models.CategoryFilter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.WithTrashed {
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.Status != nil {
		conds = append(conds, "status = "+arg(*f.Status))
	}
	if f.RootOnly {
		conds = append(conds, "parent_id IS NULL")
	} else if f.ParentID != nil {
		conds = append(conds, "parent_id = "+arg(*f.ParentID))
	}
	if f.Depth != nil {
		conds = append(conds, "depth = "+arg(*f.Depth))
	}
	if f.MaxDepth != nil {
		conds = append(conds, "depth <= "+arg(*f.MaxDepth))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Tree returns the whole live forest as nested categories. One flat query
// ordered by path yields pre-order; children are grouped in memory and
// sorted by position.
func (s *CategoryStore) Tree(ctx context.Context, onlyActive bool) ([]*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE deleted_at IS NULL`
	if onlyActive {
		query += ` AND status = TRUE`
	}
	query += ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tree categories: %w", err)
	}
	flat, err := collectCategories(rows)
	if err != nil {
		return nil, err
	}
	return BuildForest(flat), nil
}

// BuildForest assembles nested trees from flat rows. Input must be sorted
// by path so parents precede their children. Nodes whose parent is absent
// from the input (filtered out or trashed) are omitted entirely rather
// than promoted to roots.
func BuildForest(flat []models.Category) []*models.Category {
	byID := make(map[int64]*models.Category, len(flat))
	var roots []*models.Category

	for i := range flat {
		c := flat[i]
		c.Children = nil
		byID[c.ID] = &c

		if c.ParentID == nil {
			roots = append(roots, &c)
			continue
		}
		parent, ok := byID[*c.ParentID]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, &c)
	}

	var sortChildren func(nodes []*models.Category)
	sortChildren = func(nodes []*models.Category) {
		sort.SliceStable(nodes, func(i, j int) bool {
			if nodes[i].Position != nodes[j].Position {
				return nodes[i].Position < nodes[j].Position
			}
			return nodes[i].ID < nodes[j].ID
		})
		for _, n := range nodes {
			sortChildren(n.Children)
		}
	}
	sortChildren(roots)
	return roots
}

// Ancestors returns the ancestor chain of a category ordered root first,
// excluding the category itself. Derived by decoding the stored path and
// batch-fetching the ids, never by walking parent_id.
func (s *CategoryStore) Ancestors(ctx context.Context, id int64) ([]models.Category, error) {
	c, err := s.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	chain, err := treepath.Decode(c.Path)
	if err != nil {
		return nil, fmt.Errorf("ancestors of %d: %w", id, err)
	}
	ancestorIDs := chain[:len(chain)-1]
	if len(ancestorIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ancestorIDs))
	args := make([]any, len(ancestorIDs))
	for i, aid := range ancestorIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = aid
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY depth`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch ancestors: %w", err)
	}
	return collectCategories(rows)
}

// Breadcrumbs returns the ancestors plus the category itself.
func (s *CategoryStore) Breadcrumbs(ctx context.Context, id int64) (*models.Breadcrumbs, error) {
	c, err := s.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	ancestors, err := s.Ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Breadcrumbs{Ancestors: ancestors, Current: *c}, nil
}

// Descendants returns every live category inside the subtree rooted at id,
// excluding the node itself, ordered by path.
func (s *CategoryStore) Descendants(ctx context.Context, id int64) ([]models.Category, error) {
	c, err := s.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE path LIKE $1 AND id <> $2 AND deleted_at IS NULL
		 ORDER BY path`,
		c.Path+"%", id)
	if err != nil {
		return nil, fmt.Errorf("descendants of %d: %w", id, err)
	}
	return collectCategories(rows)
}

// descendantsForUpdate locks and returns the subtree below path inside the
// given transaction. Includes trashed rows: their paths must stay
// consistent through moves so backfill keeps working.
func descendantsForUpdate(ctx context.Context, q dbtx, path string, selfID int64) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE path LIKE $1 AND id <> $2
		 ORDER BY path
		 FOR UPDATE`,
		path+"%", selfID)
	if err != nil {
		return nil, fmt.Errorf("lock descendants: %w", err)
	}
	return collectCategories(rows)
}

// RootIDs returns the ids of all live roots, ordered by position.
func (s *CategoryStore) RootIDs(ctx context.Context, onlyActive bool) ([]int64, error) {
	query := `SELECT id FROM categories WHERE parent_id IS NULL AND deleted_at IS NULL`
	if onlyActive {
		query += ` AND status = TRUE`
	}
	query += ` ORDER BY position, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("root ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan root id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Statistics aggregates the live tree in one scan plus a GROUP BY.
func (s *CategoryStore) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{DepthDistribution: make(map[int]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status),
		       COALESCE(MAX(depth), 0)
		FROM categories
		WHERE deleted_at IS NULL
	`).Scan(&stats.Total, &stats.Active, &stats.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("category statistics: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT depth, COUNT(*)
		FROM categories
		WHERE deleted_at IS NULL
		GROUP BY depth
		ORDER BY depth
	`)
	if err != nil {
		return nil, fmt.Errorf("depth distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var depth, count int
		if err := rows.Scan(&depth, &count); err != nil {
			return nil, fmt.Errorf("scan depth distribution: %w", err)
		}
		stats.DepthDistribution[depth] = count
	}
	return stats, rows.Err()
}

// Transaction-scoped variants. The mutation service owns the transaction;
// every multi-row write goes through these so a failed step rolls the
// whole operation back.

// FindByIDTx looks a category up inside a transaction.
func (s *CategoryStore) FindByIDTx(ctx context.Context, tx *sql.Tx, id int64, withTrashed bool) (*models.Category, error) {
	return findByID(ctx, tx, id, withTrashed)
}

// FindByIDForUpdate locks a live category row for the transaction.
func (s *CategoryStore) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Category, error) {
	return findByIDForUpdate(ctx, tx, id)
}

// DescendantsForUpdate locks and returns the whole subtree below path,
// trashed rows included.
func (s *CategoryStore) DescendantsForUpdate(ctx context.Context, tx *sql.Tx, path string, selfID int64) ([]models.Category, error) {
	return descendantsForUpdate(ctx, tx, path, selfID)
}

// LiveChildCount counts non-deleted direct children inside a transaction.
func (s *CategoryStore) LiveChildCount(ctx context.Context, tx *sql.Tx, id int64) (int, error) {
	return liveChildCount(ctx, tx, id)
}

// NextPosition returns max(sibling positions) + 1 under the given parent.
func (s *CategoryStore) NextPosition(ctx context.Context, tx *sql.Tx, parentID *int64) (int, error) {
	return nextPosition(ctx, tx, parentID)
}

// SlugTaken reports whether a live row other than excludeID uses the slug.
func (s *CategoryStore) SlugTaken(ctx context.Context, tx *sql.Tx, slug string, excludeID int64) (bool, error) {
	return slugTaken(ctx, tx, slug, excludeID)
}

// Insert persists a new category inside a transaction.
func (s *CategoryStore) Insert(ctx context.Context, tx *sql.Tx, c *models.Category, parentPath string) (*models.Category, error) {
	return insertCategory(ctx, tx, c, parentPath)
}

// UpdateScalars writes non-structural fields inside a transaction.
func (s *CategoryStore) UpdateScalars(ctx context.Context, tx *sql.Tx, c *models.Category) error {
	return updateScalars(ctx, tx, c)
}

// UpdatePlacement rewrites parent_id, path, and depth for one row.
func (s *CategoryStore) UpdatePlacement(ctx context.Context, tx *sql.Tx, id int64, parentID *int64, path string, depth int) error {
	return updatePlacement(ctx, tx, id, parentID, path, depth)
}

// SoftDelete marks a row deleted inside a transaction.
func (s *CategoryStore) SoftDelete(ctx context.Context, tx *sql.Tx, id int64) error {
	return softDelete(ctx, tx, id)
}

// BatchSetStatus applies one status to many ids in a single statement.
func (s *CategoryStore) BatchSetStatus(ctx context.Context, tx *sql.Tx, ids []int64, status bool) (int, error) {
	return batchSetStatus(ctx, tx, ids, status)
}

// SetPosition writes one sibling position inside a reorder transaction.
func (s *CategoryStore) SetPosition(ctx context.Context, tx *sql.Tx, id int64, position int) error {
	return setPosition(ctx, tx, id, position)
}

// liveChildCount counts non-deleted direct children.
func liveChildCount(ctx context.Context, q dbtx, id int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE parent_id = $1 AND deleted_at IS NULL`, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return n, nil
}

// nextPosition returns max(sibling positions) + 1 under the given parent.
func nextPosition(ctx context.Context, q dbtx, parentID *int64) (int, error) {
	var maxPos sql.NullInt64
	var err error
	if parentID == nil {
		err = q.QueryRowContext(ctx,
			`SELECT MAX(position) FROM categories WHERE parent_id IS NULL AND deleted_at IS NULL`,
		).Scan(&maxPos)
	} else {
		err = q.QueryRowContext(ctx,
			`SELECT MAX(position) FROM categories WHERE parent_id = $1 AND deleted_at IS NULL`, *parentID,
		).Scan(&maxPos)
	}
	if err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	if maxPos.Valid {
		return int(maxPos.Int64) + 1, nil
	}
	return 0, nil
}

// slugTaken reports whether a live row other than excludeID already uses
// the slug.
func slugTaken(ctx context.Context, q dbtx, slug string, excludeID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE slug = $1 AND id <> $2 AND deleted_at IS NULL`,
		slug, excludeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

// insertCategory persists a new row and returns it with its generated id.
// parentPath is "" for roots. The path is written in a second statement
// because it contains the generated id.
func insertCategory(ctx context.Context, q dbtx, c *models.Category, parentPath string) (*models.Category, error) {
	row := q.QueryRowContext(ctx, `
		INSERT INTO categories (parent_id, name, slug, description,
			meta_title, meta_description, meta_keywords,
			status, position, depth)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+categoryColumns,
		c.ParentID, c.Name, c.Slug, c.Description,
		c.MetaTitle, c.MetaDescription, c.MetaKeywords,
		c.Status, c.Position, c.Depth,
	)
	inserted, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	inserted.Path = treepath.Encode(parentPath, inserted.ID)
	if _, err := q.ExecContext(ctx,
		`UPDATE categories SET path = $1 WHERE id = $2`, inserted.Path, inserted.ID); err != nil {
		return nil, fmt.Errorf("set category path: %w", err)
	}
	return inserted, nil
}

// updateScalars writes the non-structural fields of a category.
func updateScalars(ctx context.Context, q dbtx, c *models.Category) error {
	_, err := q.ExecContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, description = $3,
			meta_title = $4, meta_description = $5, meta_keywords = $6,
			status = $7, position = $8, updated_at = NOW()
		WHERE id = $9
	`, c.Name, c.Slug, c.Description,
		c.MetaTitle, c.MetaDescription, c.MetaKeywords,
		c.Status, c.Position, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// updatePlacement rewrites parent_id, path, and depth for one row. Used by
// the move path for the node and each descendant inside one transaction.
func updatePlacement(ctx context.Context, q dbtx, id int64, parentID *int64, path string, depth int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE categories SET parent_id = $1, path = $2, depth = $3, updated_at = NOW()
		WHERE id = $4
	`, parentID, path, depth, id)
	if err != nil {
		return fmt.Errorf("update placement for %d: %w", id, err)
	}
	return nil
}

// softDelete marks a row deleted without removing it.
func softDelete(ctx context.Context, q dbtx, id int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE categories SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete rows affected: %w", err)
	}
	if n == 0 {
		return &models.NotFoundError{ID: id}
	}
	return nil
}

// batchSetStatus applies one status to many ids in a single statement.
// Returns the number of live rows touched.
func batchSetStatus(ctx context.Context, q dbtx, ids []int64, status bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, status)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE categories SET status = $1, updated_at = NOW()
		 WHERE deleted_at IS NULL AND id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("batch set status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("batch status rows affected: %w", err)
	}
	return int(n), nil
}

// setPosition writes one sibling position inside a reorder transaction.
func setPosition(ctx context.Context, q dbtx, id int64, position int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE categories SET position = $1, updated_at = NOW()
		 WHERE id = $2 AND deleted_at IS NULL`, position, id)
	if err != nil {
		return fmt.Errorf("set position for %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set position rows affected: %w", err)
	}
	if n == 0 {
		return &models.NotFoundError{ID: id}
	}
	return nil
}
