// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// category.go caches the expensive category reads: assembled trees,
// breadcrumb chains, children lists, root-id sets, and statistics. Keys are
// scoped by intent so mutations invalidate only what they actually
// changed. Cache failures are logged and swallowed — a broken cache
// degrades to cache-miss behavior, it never fails a read or a mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"taxonomy/internal/models"
)

const (
	keyTreeActive      = "category:tree:active"
	keyTreeAll         = "category:tree:all"
	keyStatistics      = "category:statistics"
	keyRootIDsActive   = "category:root_ids:active"
	keyRootIDsAll      = "category:root_ids:all"
	breadcrumbsPrefix  = "category:breadcrumbs:" // + id
	childrenPrefix     = "category:children:"    // + parent id, "root" for none

	// DefaultTTL bounds staleness if an invalidation is ever missed.
	DefaultTTL = 10 * time.Minute
)

// CategoryCache is the Valkey-backed cache for category reads.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache creates a category cache with the given TTL.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &CategoryCache{client: client, ttl: ttl}
}

func treeKey(onlyActive bool) string {
	if onlyActive {
		return keyTreeActive
	}
	return keyTreeAll
}

func rootIDsKey(onlyActive bool) string {
	if onlyActive {
		return keyRootIDsActive
	}
	return keyRootIDsAll
}

// ChildrenKeyFor returns the children cache key for a parent id, using the
// "root" scope when the parent is nil.
func ChildrenKeyFor(parentID *int64) string {
	if parentID == nil {
		return childrenPrefix + "root"
	}
	return fmt.Sprintf("%s%d", childrenPrefix, *parentID)
}

// get unmarshals a cached JSON value into dest, reporting a hit.
func (cc *CategoryCache) get(ctx context.Context, key string, dest any) bool {
	raw, err := cc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		slog.Warn("category cache get error", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("category cache decode error", "key", key, "error", err)
		return false
	}
	return true
}

// set marshals and stores a value under the configured TTL.
func (cc *CategoryCache) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("category cache encode error", "key", key, "error", err)
		return
	}
	if err := cc.client.Set(ctx, key, raw, cc.ttl).Err(); err != nil {
		slog.Warn("category cache set error", "key", key, "error", err)
	}
}

func (cc *CategoryCache) del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := cc.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("category cache delete error", "keys", keys, "error", err)
		return
	}
	slog.Debug("category cache invalidated", "keys", keys)
}

// GetTree returns a cached forest for the given scope.
func (cc *CategoryCache) GetTree(ctx context.Context, onlyActive bool) ([]*models.Category, bool) {
	var forest []*models.Category
	if !cc.get(ctx, treeKey(onlyActive), &forest) {
		return nil, false
	}
	return forest, true
}

// SetTree stores an assembled forest for the given scope.
func (cc *CategoryCache) SetTree(ctx context.Context, onlyActive bool, forest []*models.Category) {
	cc.set(ctx, treeKey(onlyActive), forest)
}

// GetBreadcrumbs returns a cached breadcrumb chain for a category.
func (cc *CategoryCache) GetBreadcrumbs(ctx context.Context, id int64) (*models.Breadcrumbs, bool) {
	var bc models.Breadcrumbs
	if !cc.get(ctx, fmt.Sprintf("%s%d", breadcrumbsPrefix, id), &bc) {
		return nil, false
	}
	return &bc, true
}

// SetBreadcrumbs stores a breadcrumb chain.
func (cc *CategoryCache) SetBreadcrumbs(ctx context.Context, id int64, bc *models.Breadcrumbs) {
	cc.set(ctx, fmt.Sprintf("%s%d", breadcrumbsPrefix, id), bc)
}

// GetChildren returns the cached direct children of a parent.
func (cc *CategoryCache) GetChildren(ctx context.Context, parentID *int64) ([]models.Category, bool) {
	var items []models.Category
	if !cc.get(ctx, ChildrenKeyFor(parentID), &items) {
		return nil, false
	}
	return items, true
}

// SetChildren stores the direct children of a parent.
func (cc *CategoryCache) SetChildren(ctx context.Context, parentID *int64, items []models.Category) {
	cc.set(ctx, ChildrenKeyFor(parentID), items)
}

// GetStatistics returns cached tree statistics.
func (cc *CategoryCache) GetStatistics(ctx context.Context) (*models.Statistics, bool) {
	var stats models.Statistics
	if !cc.get(ctx, keyStatistics, &stats) {
		return nil, false
	}
	return &stats, true
}

// SetStatistics stores tree statistics.
func (cc *CategoryCache) SetStatistics(ctx context.Context, stats *models.Statistics) {
	cc.set(ctx, keyStatistics, stats)
}

// GetRootIDs returns the cached live root ids for a scope.
func (cc *CategoryCache) GetRootIDs(ctx context.Context, onlyActive bool) ([]int64, bool) {
	var ids []int64
	if !cc.get(ctx, rootIDsKey(onlyActive), &ids) {
		return nil, false
	}
	return ids, true
}

// SetRootIDs stores the live root ids for a scope.
func (cc *CategoryCache) SetRootIDs(ctx context.Context, onlyActive bool, ids []int64) {
	cc.set(ctx, rootIDsKey(onlyActive), ids)
}

// InvalidateNode drops the caches affected by a scalar update of one
// category: its breadcrumbs and its parent's children list. Tree shape did
// not change, so tree keys survive.
func (cc *CategoryCache) InvalidateNode(ctx context.Context, id int64, parentID *int64) {
	cc.del(ctx,
		fmt.Sprintf("%s%d", breadcrumbsPrefix, id),
		ChildrenKeyFor(parentID),
	)
}

// InvalidateSubtreeBreadcrumbs drops breadcrumbs for a moved node and all
// of its descendants — every one of their chains contains the moved node.
func (cc *CategoryCache) InvalidateSubtreeBreadcrumbs(ctx context.Context, ids []int64) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("%s%d", breadcrumbsPrefix, id)
	}
	cc.del(ctx, keys...)
}

// InvalidateMove drops everything a reparent touches: breadcrumbs of the
// whole moved subtree, children lists of both old and new parent, the
// tree and root-id sets, and statistics.
func (cc *CategoryCache) InvalidateMove(ctx context.Context, subtreeIDs []int64, oldParentID, newParentID *int64) {
	cc.InvalidateSubtreeBreadcrumbs(ctx, subtreeIDs)
	cc.del(ctx,
		ChildrenKeyFor(oldParentID),
		ChildrenKeyFor(newParentID),
		keyTreeActive, keyTreeAll,
		keyRootIDsActive, keyRootIDsAll,
		keyStatistics,
	)
}

// InvalidateShape drops the caches affected by a create or delete: the
// parent's children list, the node's breadcrumbs, trees, root ids, and
// statistics.
func (cc *CategoryCache) InvalidateShape(ctx context.Context, id int64, parentID *int64) {
	cc.del(ctx,
		fmt.Sprintf("%s%d", breadcrumbsPrefix, id),
		ChildrenKeyFor(parentID),
		keyTreeActive, keyTreeAll,
		keyRootIDsActive, keyRootIDsAll,
		keyStatistics,
	)
}

// InvalidateStatus drops only what a pure status toggle affects: the
// status-scoped trees, root-id sets, and statistics. Breadcrumb and
// children entries carry the status flag inline, so they are dropped per
// id by the caller when needed.
func (cc *CategoryCache) InvalidateStatus(ctx context.Context, ids []int64) {
	keys := []string{keyTreeActive, keyTreeAll, keyRootIDsActive, keyRootIDsAll, keyStatistics}
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf("%s%d", breadcrumbsPrefix, id))
	}
	cc.del(ctx, keys...)
}

// InvalidateOrder drops what a sibling reorder affects: the parent's
// children list and the assembled trees (root-id sets too when roots were
// reordered). Statistics and breadcrumbs do not depend on order.
func (cc *CategoryCache) InvalidateOrder(ctx context.Context, parentID *int64) {
	keys := []string{ChildrenKeyFor(parentID), keyTreeActive, keyTreeAll}
	if parentID == nil {
		keys = append(keys, keyRootIDsActive, keyRootIDsAll)
	}
	cc.del(ctx, keys...)
}

// InvalidateStatistics drops only the statistics entry.
func (cc *CategoryCache) InvalidateStatistics(ctx context.Context) {
	cc.del(ctx, keyStatistics)
}

// TreeSource supplies the data Warmup preloads. Implemented by the
// category store.
type TreeSource interface {
	Tree(ctx context.Context, onlyActive bool) ([]*models.Category, error)
	RootIDs(ctx context.Context, onlyActive bool) ([]int64, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Warmup populates the tree, root-id, and statistics entries from src.
// It is idempotent and meant to be run explicitly (after deploy or a bulk
// load), never implicitly from a read path.
func (cc *CategoryCache) Warmup(ctx context.Context, src TreeSource) error {
	for _, onlyActive := range []bool{true, false} {
		forest, err := src.Tree(ctx, onlyActive)
		if err != nil {
			return fmt.Errorf("warmup tree (active=%v): %w", onlyActive, err)
		}
		cc.SetTree(ctx, onlyActive, forest)

		ids, err := src.RootIDs(ctx, onlyActive)
		if err != nil {
			return fmt.Errorf("warmup root ids (active=%v): %w", onlyActive, err)
		}
		cc.SetRootIDs(ctx, onlyActive, ids)
	}

	stats, err := src.Statistics(ctx)
	if err != nil {
		return fmt.Errorf("warmup statistics: %w", err)
	}
	cc.SetStatistics(ctx, stats)

	slog.Info("category cache warmed", "total", stats.Total, "active", stats.Active)
	return nil
}
