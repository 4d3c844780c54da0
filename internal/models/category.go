// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"
)

// Category represents a node of the hierarchical product-category tree.
// The ancestor chain is denormalized into Path ("/1/4/9/" for node 9 under
// 4 under root 1) so ancestor and descendant lookups are prefix operations
// instead of recursive joins. Depth is always len(path segments) - 1.
type Category struct {
	ID          int64  `json:"id"`
	ParentID    *int64 `json:"parent_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`

	// SEO metadata. Irrelevant to tree structure.
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	MetaKeywords    string `json:"meta_keywords"`

	// Status enables/disables the category without changing tree shape.
	Status bool `json:"status"`

	// Position orders siblings under the same parent. Not necessarily
	// contiguous.
	Position int `json:"position"`

	// Path and Depth are the materialized-path denormalization. They are
	// computed at insert time and rewritten in bulk when a subtree moves.
	Path  string `json:"path"`
	Depth int    `json:"depth"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Children is populated by tree-assembly reads only.
	Children []*Category `json:"children,omitempty"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// Trashed reports whether the category is soft-deleted.
func (c *Category) Trashed() bool {
	return c.DeletedAt != nil
}

// CategoryPage is one page of a filtered category listing.
type CategoryPage struct {
	Items      []Category `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
}

// Breadcrumbs is the ancestor chain of a category, root first, plus the
// category itself.
type Breadcrumbs struct {
	Ancestors []Category `json:"ancestors"`
	Current   Category   `json:"current"`
}

// Statistics summarizes the stored tree. Safe to cache.
type Statistics struct {
	Total             int         `json:"total"`
	Active            int         `json:"active"`
	MaxDepth          int         `json:"max_depth"`
	DepthDistribution map[int]int `json:"depth_distribution"`
}
