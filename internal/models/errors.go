// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// errors.go defines the typed domain errors of the category engine.
// Structural-safety violations (cycles, depth, live children) are returned
// as values from the mutation service and matched with errors.As by
// callers; they must never surface as generic 500s.
package models

import "fmt"

// NotFoundError reports that an id does not resolve to a live category row.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("category %d not found", e.ID)
}

// ValidationError reports invalid input attributes. Fields maps attribute
// names to human-readable problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid category attributes: %v", e.Fields)
}

// CycleError reports a reparent that would make a node its own ancestor.
type CycleError struct {
	ID          int64
	NewParentID int64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("moving category %d under %d would create a cycle", e.ID, e.NewParentID)
}

// DepthExceededError reports a create or move that would push a node (or
// one of its descendants) past the configured maximum depth.
type DepthExceededError struct {
	MaxDepth    int
	ResultDepth int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("operation would produce depth %d, maximum is %d", e.ResultDepth, e.MaxDepth)
}

// HasChildrenError reports a delete rejected because the category still has
// live (non-deleted) children. Deletes never cascade; orphaning is
// prevented by rejecting the delete.
type HasChildrenError struct {
	ID       int64
	Children int
}

func (e *HasChildrenError) Error() string {
	return fmt.Sprintf("category %d has %d live children and cannot be deleted", e.ID, e.Children)
}
