// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// CategoryFilter enumerates every supported listing constraint. A zero
// value means "no constraint" for that field. Replaces the ad hoc filter
// maps callers might otherwise pass around.
type CategoryFilter struct {
	// Search matches name or description, case-insensitive substring.
	Search string

	// Status filters by enabled/disabled when non-nil.
	Status *bool

	// ParentID filters by direct parent when non-nil. RootOnly selects
	// categories with no parent; it wins over ParentID when both are set.
	ParentID *int64
	RootOnly bool

	// Depth selects an exact depth; MaxDepth selects depth <= N.
	Depth    *int
	MaxDepth *int

	// WithTrashed includes soft-deleted rows. Default reads exclude them.
	WithTrashed bool
}
