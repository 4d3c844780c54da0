// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// PositionAssignment is one entry of a sibling reorder request.
type PositionAssignment struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}

// SkippedDelete records a batch-delete entry that was not applied and why.
type SkippedDelete struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// BatchDeleteResult reports the per-id outcome of a batch delete. Entries
// with live children are skipped rather than failing the batch.
type BatchDeleteResult struct {
	Deleted []int64         `json:"deleted"`
	Skipped []SkippedDelete `json:"skipped"`
}

// Affected returns the number of categories actually deleted.
func (r *BatchDeleteResult) Affected() int {
	return len(r.Deleted)
}
