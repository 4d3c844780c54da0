// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package service orchestrates category mutations. Every write that
// touches more than one row (move, reorder, batch operations) runs inside
// a single transaction; the structural checks run against rows locked by
// that same transaction, so two concurrent moves of overlapping subtrees
// serialize at the database. Cache invalidation happens strictly after
// commit.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"taxonomy/internal/models"
	"taxonomy/internal/slug"
	"taxonomy/internal/store"
	"taxonomy/internal/treepath"
)

// Invalidator is the cache port the mutation service drives. Implemented
// by cache.CategoryCache; implementations must never return errors — a
// failed invalidation is logged and degrades to a TTL-bounded stale read.
type Invalidator interface {
	InvalidateNode(ctx context.Context, id int64, parentID *int64)
	InvalidateShape(ctx context.Context, id int64, parentID *int64)
	InvalidateMove(ctx context.Context, subtreeIDs []int64, oldParentID, newParentID *int64)
	InvalidateStatus(ctx context.Context, ids []int64)
	InvalidateOrder(ctx context.Context, parentID *int64)
}

// CategoryService performs validated, transactional category mutations.
type CategoryService struct {
	store    *store.CategoryStore
	cache    Invalidator
	maxDepth int
}

// NewCategoryService wires the mutation service. maxDepth is the deepest
// allowed node depth (root = 0).
func NewCategoryService(st *store.CategoryStore, cache Invalidator, maxDepth int) *CategoryService {
	return &CategoryService{store: st, cache: cache, maxDepth: maxDepth}
}

// CategoryAttrs carries the writable fields of a category. Nil pointers
// mean "leave unchanged" on update and "use the default" on create.
// ParentProvided distinguishes "parent_id absent from the request" from
// "parent_id explicitly null" (make the node a root).
type CategoryAttrs struct {
	Name            string
	Slug            string
	Description     string
	MetaTitle       string
	MetaDescription string
	MetaKeywords    string
	Status          *bool
	Position        *int

	ParentID       *int64
	ParentProvided bool
}

// validate checks attribute shape. Structural rules (existence of the
// parent, depth, cycles) are checked later inside the transaction.
func (a CategoryAttrs) validate() error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.Slug, validation.Length(0, 255)),
		validation.Field(&a.Description, validation.Length(0, 10000)),
		validation.Field(&a.MetaTitle, validation.Length(0, 255)),
		validation.Field(&a.MetaDescription, validation.Length(0, 500)),
		validation.Field(&a.MetaKeywords, validation.Length(0, 500)),
	)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	if verr, ok := err.(validation.Errors); ok {
		for field, ferr := range verr {
			fields[strings.ToLower(field)] = ferr.Error()
		}
	} else {
		fields["attrs"] = err.Error()
	}
	return &models.ValidationError{Fields: fields}
}

// Create inserts a new category. The parent's path and depth are read
// under a row lock inside the transaction, never from a stale snapshot.
func (s *CategoryService) Create(ctx context.Context, attrs CategoryAttrs) (*models.Category, error) {
	if err := attrs.validate(); err != nil {
		return nil, err
	}

	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create category begin tx: %w", err)
	}
	defer tx.Rollback()

	parentPath := ""
	depth := 0
	if attrs.ParentID != nil {
		parent, err := s.store.FindByIDForUpdate(ctx, tx, *attrs.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Depth+1 > s.maxDepth {
			return nil, &models.DepthExceededError{MaxDepth: s.maxDepth, ResultDepth: parent.Depth + 1}
		}
		parentPath = parent.Path
		depth = parent.Depth + 1
	}

	position := 0
	if attrs.Position != nil {
		position = *attrs.Position
	} else {
		position, err = s.store.NextPosition(ctx, tx, attrs.ParentID)
		if err != nil {
			return nil, err
		}
	}

	status := true
	if attrs.Status != nil {
		status = *attrs.Status
	}

	slugVal, err := s.uniqueSlug(ctx, tx, attrs.Slug, attrs.Name, 0)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Insert(ctx, tx, &models.Category{
		ParentID:        attrs.ParentID,
		Name:            attrs.Name,
		Slug:            slugVal,
		Description:     attrs.Description,
		MetaTitle:       attrs.MetaTitle,
		MetaDescription: attrs.MetaDescription,
		MetaKeywords:    attrs.MetaKeywords,
		Status:          status,
		Position:        position,
		Depth:           depth,
	}, parentPath)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create category commit: %w", err)
	}

	s.cache.InvalidateShape(ctx, created.ID, created.ParentID)
	slog.Info("category created", "id", created.ID, "slug", created.Slug, "depth", created.Depth)
	return created, nil
}

// Update writes scalar fields of a category. A changed parent_id turns the
// update into a move of the whole subtree, still inside the same
// transaction.
func (s *CategoryService) Update(ctx context.Context, id int64, attrs CategoryAttrs) (*models.Category, error) {
	if err := attrs.validate(); err != nil {
		return nil, err
	}

	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update category begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := s.store.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	slugVal := current.Slug
	if attrs.Slug != "" || attrs.Name != current.Name {
		slugVal, err = s.uniqueSlug(ctx, tx, attrs.Slug, attrs.Name, id)
		if err != nil {
			return nil, err
		}
	}

	updated := *current
	updated.Name = attrs.Name
	updated.Slug = slugVal
	updated.Description = attrs.Description
	updated.MetaTitle = attrs.MetaTitle
	updated.MetaDescription = attrs.MetaDescription
	updated.MetaKeywords = attrs.MetaKeywords
	if attrs.Status != nil {
		updated.Status = *attrs.Status
	}
	if attrs.Position != nil {
		updated.Position = *attrs.Position
	}
	if err := s.store.UpdateScalars(ctx, tx, &updated); err != nil {
		return nil, err
	}

	moving := attrs.ParentProvided && !sameParent(current.ParentID, attrs.ParentID)
	var subtreeIDs []int64
	if moving {
		subtreeIDs, err = s.moveLocked(ctx, tx, current, attrs.ParentID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update category commit: %w", err)
	}

	if moving {
		// Move invalidation already drops trees, root ids, statistics,
		// and the subtree's breadcrumbs, covering any status or
		// position change in the same request.
		s.cache.InvalidateMove(ctx, subtreeIDs, current.ParentID, attrs.ParentID)
		slog.Info("category moved", "id", id, "subtree_size", len(subtreeIDs))
	} else {
		s.cache.InvalidateNode(ctx, id, current.ParentID)
		if updated.Status != current.Status {
			// A status flip changes which nodes the active-scoped
			// trees and statistics contain.
			s.cache.InvalidateStatus(ctx, []int64{id})
		}
		if updated.Position != current.Position {
			s.cache.InvalidateOrder(ctx, current.ParentID)
		}
	}

	return s.store.FindByID(ctx, id, false)
}

// Move reparents a category (nil newParentID promotes it to a root) and
// rewrites the paths of its whole subtree in one transaction. On a cycle
// or depth violation nothing is written.
func (s *CategoryService) Move(ctx context.Context, id int64, newParentID *int64) (*models.Category, error) {
	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("move category begin tx: %w", err)
	}
	defer tx.Rollback()

	node, err := s.store.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sameParent(node.ParentID, newParentID) {
		// Nothing to do; not an error.
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("move category commit: %w", err)
		}
		return node, nil
	}

	subtreeIDs, err := s.moveLocked(ctx, tx, node, newParentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("move category commit: %w", err)
	}

	s.cache.InvalidateMove(ctx, subtreeIDs, node.ParentID, newParentID)
	slog.Info("category moved", "id", id, "subtree_size", len(subtreeIDs))
	return s.store.FindByID(ctx, id, false)
}

// moveLocked performs the structural part of a move. The node row must
// already be locked by the caller's transaction. Returns the ids of every
// row whose path was rewritten (node first).
func (s *CategoryService) moveLocked(ctx context.Context, tx *sql.Tx, node *models.Category, newParentID *int64) ([]int64, error) {
	var newParent *models.Category
	newParentPath := ""
	if newParentID != nil {
		p, err := s.store.FindByIDForUpdate(ctx, tx, *newParentID)
		if err != nil {
			return nil, err
		}
		newParent = p
		newParentPath = p.Path
	}

	descendants, err := s.store.DescendantsForUpdate(ctx, tx, node.Path, node.ID)
	if err != nil {
		return nil, err
	}

	height := treepath.SubtreeHeight(node, descendants)
	if err := treepath.ValidateReparent(node, newParent, height, s.maxDepth); err != nil {
		return nil, err
	}

	placements := treepath.ComputeSubtreePaths(node, descendants, newParentPath)

	self := placements[node.ID]
	if err := s.store.UpdatePlacement(ctx, tx, node.ID, newParentID, self.Path, self.Depth); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(placements))
	ids = append(ids, node.ID)
	for _, d := range descendants {
		pd := placements[d.ID]
		if err := s.store.UpdatePlacement(ctx, tx, d.ID, d.ParentID, pd.Path, pd.Depth); err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// Delete soft-deletes a category. Rejected with HasChildrenError while any
// live child exists — descendants are never cascade-deleted.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete category begin tx: %w", err)
	}
	defer tx.Rollback()

	node, err := s.store.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}

	children, err := s.store.LiveChildCount(ctx, tx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return &models.HasChildrenError{ID: id, Children: children}
	}

	if err := s.store.SoftDelete(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete category commit: %w", err)
	}

	s.cache.InvalidateShape(ctx, id, node.ParentID)
	slog.Info("category deleted", "id", id)
	return nil
}

// BatchSetStatus enables or disables many categories in one statement.
// Idempotent: re-applying the same status touches the same rows and
// reports the same affected count.
func (s *CategoryService) BatchSetStatus(ctx context.Context, ids []int64, status bool) (int, error) {
	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("batch status begin tx: %w", err)
	}
	defer tx.Rollback()

	affected, err := s.store.BatchSetStatus(ctx, tx, ids, status)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("batch status commit: %w", err)
	}

	s.cache.InvalidateStatus(ctx, ids)
	slog.Info("category batch status", "count", len(ids), "affected", affected, "status", status)
	return affected, nil
}

// BatchDelete soft-deletes many categories, skipping (not failing) ids
// that are missing or still have live children. Entries are processed
// deepest first, so deleting a parent together with all of its children
// succeeds in one call. The whole batch commits atomically; the per-id
// result says exactly which ids were applied.
func (s *CategoryService) BatchDelete(ctx context.Context, ids []int64) (*models.BatchDeleteResult, error) {
	result := &models.BatchDeleteResult{}

	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("batch delete begin tx: %w", err)
	}
	defer tx.Rollback()

	type target struct {
		id       int64
		parentID *int64
		depth    int
	}
	var targets []target
	for _, id := range ids {
		node, err := s.store.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			var nf *models.NotFoundError
			if errors.As(err, &nf) {
				result.Skipped = append(result.Skipped, models.SkippedDelete{ID: id, Reason: "not found"})
				continue
			}
			return nil, err
		}
		targets = append(targets, target{id: node.ID, parentID: node.ParentID, depth: node.Depth})
	}

	sort.SliceStable(targets, func(i, j int) bool { return targets[i].depth > targets[j].depth })

	var parents []*int64
	for _, tgt := range targets {
		children, err := s.store.LiveChildCount(ctx, tx, tgt.id)
		if err != nil {
			return nil, err
		}
		if children > 0 {
			result.Skipped = append(result.Skipped, models.SkippedDelete{ID: tgt.id, Reason: "has live children"})
			continue
		}
		if err := s.store.SoftDelete(ctx, tx, tgt.id); err != nil {
			return nil, err
		}
		result.Deleted = append(result.Deleted, tgt.id)
		parents = append(parents, tgt.parentID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("batch delete commit: %w", err)
	}

	for i, id := range result.Deleted {
		s.cache.InvalidateShape(ctx, id, parents[i])
	}
	slog.Info("category batch delete", "requested", len(ids),
		"deleted", len(result.Deleted), "skipped", len(result.Skipped))
	return result, nil
}

// Reorder bulk-writes sibling positions. Atomic: a single missing id rolls
// back every assignment, since a partial reorder is user-visible
// inconsistency.
func (s *CategoryService) Reorder(ctx context.Context, assignments []models.PositionAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reorder begin tx: %w", err)
	}
	defer tx.Rollback()

	parentKeys := make(map[string]*int64)
	for _, a := range assignments {
		node, err := s.store.FindByIDTx(ctx, tx, a.ID, false)
		if err != nil {
			return err
		}
		if err := s.store.SetPosition(ctx, tx, a.ID, a.Position); err != nil {
			return err
		}
		parentKeys[parentKey(node.ParentID)] = node.ParentID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reorder commit: %w", err)
	}

	// Position changes alter sibling order inside trees and children
	// lists for each touched parent.
	for _, pid := range parentKeys {
		s.cache.InvalidateOrder(ctx, pid)
	}
	slog.Info("categories reordered", "count", len(assignments))
	return nil
}

// uniqueSlug resolves the final slug for a row: explicit slug if given,
// otherwise derived from the name, then probed with -2, -3, ... suffixes
// until free among live rows.
func (s *CategoryService) uniqueSlug(ctx context.Context, tx *sql.Tx, explicit, name string, excludeID int64) (string, error) {
	base := slug.Generate(explicit)
	if base == "" {
		base = slug.Generate(name)
	}
	if base == "" {
		return "", &models.ValidationError{Fields: map[string]string{"slug": "cannot be derived from name"}}
	}

	candidate := base
	for i := 2; ; i++ {
		taken, err := s.store.SlugTaken(ctx, tx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func sameParent(a, b *int64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func parentKey(p *int64) string {
	if p == nil {
		return "root"
	}
	return fmt.Sprintf("%d", *p)
}
