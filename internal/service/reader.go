// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// reader.go is the cache-aside read path for category queries. Cache
// misses (including cache failures, which look like misses) fall through
// to the store; results are written back on the way out.
package service

import (
	"context"
	"errors"
	"log/slog"

	"taxonomy/internal/models"
	"taxonomy/internal/store"
	"taxonomy/internal/treepath"
)

// ReadCache is the cache port for the read path. Implemented by
// cache.CategoryCache.
type ReadCache interface {
	GetTree(ctx context.Context, onlyActive bool) ([]*models.Category, bool)
	SetTree(ctx context.Context, onlyActive bool, forest []*models.Category)
	GetBreadcrumbs(ctx context.Context, id int64) (*models.Breadcrumbs, bool)
	SetBreadcrumbs(ctx context.Context, id int64, bc *models.Breadcrumbs)
	GetStatistics(ctx context.Context) (*models.Statistics, bool)
	SetStatistics(ctx context.Context, stats *models.Statistics)
	GetRootIDs(ctx context.Context, onlyActive bool) ([]int64, bool)
	SetRootIDs(ctx context.Context, onlyActive bool, ids []int64)
}

// CategoryReader serves category queries through the cache.
type CategoryReader struct {
	store *store.CategoryStore
	cache ReadCache
}

// NewCategoryReader wires the read path.
func NewCategoryReader(st *store.CategoryStore, cache ReadCache) *CategoryReader {
	return &CategoryReader{store: st, cache: cache}
}

// List returns one page of categories. Listings are filter-shaped and
// rarely repeat, so they are served straight from the store.
func (r *CategoryReader) List(ctx context.Context, filter models.CategoryFilter, page, perPage int) (*models.CategoryPage, error) {
	return r.store.Paginate(ctx, filter, page, perPage)
}

// Get returns a single category by id.
func (r *CategoryReader) Get(ctx context.Context, id int64) (*models.Category, error) {
	return r.store.FindByID(ctx, id, false)
}

// Tree returns the assembled forest, cache-aside per active scope.
func (r *CategoryReader) Tree(ctx context.Context, onlyActive bool) ([]*models.Category, error) {
	if forest, ok := r.cache.GetTree(ctx, onlyActive); ok {
		return forest, nil
	}
	forest, err := r.store.Tree(ctx, onlyActive)
	if err != nil {
		return nil, err
	}
	r.cache.SetTree(ctx, onlyActive, forest)
	return forest, nil
}

// Breadcrumbs returns the root-first ancestor chain plus the category
// itself, cache-aside per id.
func (r *CategoryReader) Breadcrumbs(ctx context.Context, id int64) (*models.Breadcrumbs, error) {
	if bc, ok := r.cache.GetBreadcrumbs(ctx, id); ok {
		return bc, nil
	}
	bc, err := r.store.Breadcrumbs(ctx, id)
	if err != nil {
		return nil, r.flagCorruption(err, id)
	}
	r.cache.SetBreadcrumbs(ctx, id, bc)
	return bc, nil
}

// Descendants returns the subtree below a category. Not cached: subtree
// reads are unbounded in number and already a single prefix query.
func (r *CategoryReader) Descendants(ctx context.Context, id int64) ([]models.Category, error) {
	items, err := r.store.Descendants(ctx, id)
	if err != nil {
		return nil, r.flagCorruption(err, id)
	}
	return items, nil
}

// Statistics returns aggregate tree statistics, cache-aside.
func (r *CategoryReader) Statistics(ctx context.Context) (*models.Statistics, error) {
	if stats, ok := r.cache.GetStatistics(ctx); ok {
		return stats, nil
	}
	stats, err := r.store.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.SetStatistics(ctx, stats)
	return stats, nil
}

// RootIDs returns the live root ids per scope, cache-aside.
func (r *CategoryReader) RootIDs(ctx context.Context, onlyActive bool) ([]int64, error) {
	if ids, ok := r.cache.GetRootIDs(ctx, onlyActive); ok {
		return ids, nil
	}
	ids, err := r.store.RootIDs(ctx, onlyActive)
	if err != nil {
		return nil, err
	}
	r.cache.SetRootIDs(ctx, onlyActive, ids)
	return ids, nil
}

// flagCorruption logs corrupt-path errors loudly before passing them up.
// Reads never repair data; that is the backfill tooling's job.
func (r *CategoryReader) flagCorruption(err error, id int64) error {
	var cpe *treepath.CorruptPathError
	if errors.As(err, &cpe) {
		slog.Error("corrupt category path detected during read; run path backfill",
			"id", id, "path", cpe.Path, "reason", cpe.Reason)
	}
	return err
}
