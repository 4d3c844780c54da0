// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// guard.go validates reparent operations and computes the replacement
// paths for a subtree being moved. All inputs are plain snapshots so the
// caller can (and must) fetch them inside the transaction that performs
// the move; checking against a different snapshot would race with
// concurrent moves of the same subtree.
package treepath

import (
	"strings"

	"taxonomy/internal/models"
)

// PathDepth is the recomputed placement of a single node after a move.
type PathDepth struct {
	Path  string
	Depth int
}

// ValidateReparent rejects a parent change that would create a cycle or
// push the subtree past maxDepth. newParent is nil when the node becomes a
// root. subtreeHeight is the number of levels in the moved subtree (1 for
// a leaf), measured from the current snapshot.
func ValidateReparent(node *models.Category, newParent *models.Category, subtreeHeight, maxDepth int) error {
	if newParent != nil {
		if newParent.ID == node.ID {
			return &models.CycleError{ID: node.ID, NewParentID: newParent.ID}
		}
		// A descendant's path starts with the node's own path, so the
		// prefix test is the whole cycle check.
		if IsDescendant(newParent.Path, node.Path) {
			return &models.CycleError{ID: node.ID, NewParentID: newParent.ID}
		}
	}

	newDepth := 0
	if newParent != nil {
		newDepth = newParent.Depth + 1
	}
	if deepest := newDepth + subtreeHeight - 1; deepest > maxDepth {
		return &models.DepthExceededError{MaxDepth: maxDepth, ResultDepth: deepest}
	}
	return nil
}

// SubtreeHeight computes the number of levels spanned by node and its
// descendants: 1 when the node is a leaf.
func SubtreeHeight(node *models.Category, descendants []models.Category) int {
	deepest := node.Depth
	for _, d := range descendants {
		if d.Depth > deepest {
			deepest = d.Depth
		}
	}
	return deepest - node.Depth + 1
}

// ComputeSubtreePaths produces the replacement path and depth for the node
// and every descendant when the node moves under newParentPath ("" for a
// new root). Each descendant keeps its suffix relative to the node; only
// the ancestor prefix is substituted.
func ComputeSubtreePaths(node *models.Category, descendants []models.Category, newParentPath string) map[int64]PathDepth {
	newNodePath := Encode(newParentPath, node.ID)
	newNodeDepth := strings.Count(newNodePath, "/") - 2

	out := make(map[int64]PathDepth, len(descendants)+1)
	out[node.ID] = PathDepth{Path: newNodePath, Depth: newNodeDepth}

	delta := newNodeDepth - node.Depth
	for _, d := range descendants {
		suffix := strings.TrimPrefix(d.Path, node.Path)
		out[d.ID] = PathDepth{
			Path:  newNodePath + suffix,
			Depth: d.Depth + delta,
		}
	}
	return out
}
