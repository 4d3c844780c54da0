// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package treepath implements the materialized-path encoding used by the
// category tree and the structural checks for mutating it. A path is the
// full ancestor chain including the node itself, "/a/b/self/", so ancestor
// and descendant lookups reduce to string prefix operations.
package treepath

import (
	"fmt"
	"strconv"
	"strings"
)

// CorruptPathError reports a stored path that does not parse. It signals a
// data-integrity problem to be repaired by backfill tooling, not a normal
// failure; readers must never silently rewrite the row.
type CorruptPathError struct {
	Path   string
	Reason string
}

func (e *CorruptPathError) Error() string {
	return fmt.Sprintf("corrupt category path %q: %s", e.Path, e.Reason)
}

// Encode builds the path for a node given its parent's path. parentPath is
// "" for roots. The result always carries leading and trailing slashes.
func Encode(parentPath string, id int64) string {
	if parentPath == "" {
		return "/" + strconv.FormatInt(id, 10) + "/"
	}
	return parentPath + strconv.FormatInt(id, 10) + "/"
}

// Decode splits a path into its ordered id chain, root first. The last id
// is the node itself.
func Decode(path string) ([]int64, error) {
	if path == "" {
		return nil, &CorruptPathError{Path: path, Reason: "empty"}
	}
	if !strings.HasPrefix(path, "/") || !strings.HasSuffix(path, "/") {
		return nil, &CorruptPathError{Path: path, Reason: "missing leading or trailing slash"}
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, &CorruptPathError{Path: path, Reason: "no segments"}
	}
	segments := strings.Split(trimmed, "/")
	ids := make([]int64, 0, len(segments))
	for _, seg := range segments {
		id, err := strconv.ParseInt(seg, 10, 64)
		if err != nil || id <= 0 {
			return nil, &CorruptPathError{Path: path, Reason: fmt.Sprintf("non-numeric segment %q", seg)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DepthOf returns the depth encoded by a path: segment count minus one,
// so roots are depth 0.
func DepthOf(path string) (int, error) {
	ids, err := Decode(path)
	if err != nil {
		return 0, err
	}
	return len(ids) - 1, nil
}

// SelfID returns the last segment of a path, the id of the node itself.
func SelfID(path string) (int64, error) {
	ids, err := Decode(path)
	if err != nil {
		return 0, err
	}
	return ids[len(ids)-1], nil
}

// IsDescendant reports whether candidate lies strictly inside the subtree
// rooted at ancestorPath. Equal paths are not descendants.
func IsDescendant(candidatePath, ancestorPath string) bool {
	return candidatePath != ancestorPath && strings.HasPrefix(candidatePath, ancestorPath)
}
