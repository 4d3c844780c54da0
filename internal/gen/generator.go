// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package gen builds large synthetic category trees for seeding and load
// testing. Plans are computed fully in memory first, level by level, and
// only then bulk-inserted; because the bulk path bypasses the per-row
// checks of the mutation service, the plan carries its own orphan
// validation and statistics.
package gen

import (
	"fmt"
	"math"
	"math/rand"
)

// Distribution selects the branching strategy of a generated tree.
type Distribution string

const (
	// DistBalanced fills every level completely before starting the
	// next, producing per-level saturation instead of lopsided trees.
	DistBalanced Distribution = "balanced"
	// DistRandom draws a random child count per parent.
	DistRandom Distribution = "random"
	// DistLinear decays the child count linearly with depth.
	DistLinear Distribution = "linear"
)

// Spec describes the tree to generate. AvgSiblings is the average number
// of siblings each non-root node has, so sibling groups hold
// AvgSiblings+1 children.
type Spec struct {
	Total       int
	MaxDepth    int
	AvgSiblings int
	Dist        Distribution

	// Seed makes random and linear runs reproducible. Zero means
	// seeded from the spec itself so identical specs yield identical
	// trees.
	Seed int64
}

// Node is one planned category. Ordinals start at 1 and double as
// placeholder ids; the inserter maps them onto real database ids.
type Node struct {
	Ordinal  int64
	Parent   int64 // 0 for roots
	Depth    int
	Position int
	Name     string
	Slug     string
}

// Plan is a fully computed synthetic tree.
type Plan struct {
	Spec     Spec
	Nodes    []Node
	PerDepth map[int]int
	// Theoretical is the per-depth node count a fully saturated tree
	// of this spec would have, for comparison in summaries.
	Theoretical map[int]int
	Roots       int
}

// Build computes a tree plan. It never touches storage.
func Build(spec Spec) (*Plan, error) {
	if spec.Total < 1 {
		return nil, fmt.Errorf("generate: total must be positive, got %d", spec.Total)
	}
	if spec.MaxDepth < 0 {
		return nil, fmt.Errorf("generate: max depth must be >= 0, got %d", spec.MaxDepth)
	}
	if spec.AvgSiblings < 0 {
		return nil, fmt.Errorf("generate: avg siblings must be >= 0, got %d", spec.AvgSiblings)
	}
	if spec.Dist == "" {
		spec.Dist = DistBalanced
	}

	branching := spec.AvgSiblings + 1
	roots := estimateRoots(spec.Total, branching, spec.MaxDepth)

	seed := spec.Seed
	if seed == 0 {
		seed = int64(spec.Total)*1_000_003 + int64(spec.MaxDepth)*101 + int64(spec.AvgSiblings)
	}
	rng := rand.New(rand.NewSource(seed))

	p := &Plan{
		Spec:        spec,
		PerDepth:    make(map[int]int),
		Theoretical: theoreticalDistribution(roots, branching, spec.MaxDepth),
		Roots:       roots,
	}

	// BFS fill: every node at depth d exists before any node at depth
	// d+1 is created.
	budget := spec.Total
	var level []int64
	for i := 0; i < roots && budget > 0; i++ {
		level = append(level, p.addNode(0, 0, i))
		budget--
	}

	for depth := 1; depth <= spec.MaxDepth && budget > 0; depth++ {
		var next []int64
		for _, parent := range level {
			if budget == 0 {
				break
			}
			n := childCount(spec.Dist, rng, branching, depth, spec.MaxDepth)
			for i := 0; i < n && budget > 0; i++ {
				next = append(next, p.addNode(parent, depth, i))
				budget--
			}
		}
		if len(next) == 0 {
			// A distribution drew zero children across a whole
			// level; force one child so the remaining budget can
			// still be placed.
			if budget > 0 && depth <= spec.MaxDepth {
				next = append(next, p.addNode(level[0], depth, 0))
				budget--
			}
		}
		level = next
	}

	// Leftover budget after the depth cap goes to the deepest level,
	// spread over its parents.
	for i := 0; budget > 0 && len(level) > 0; i++ {
		parent := level[i%len(level)]
		node := p.nodeByOrdinal(parent)
		if node.Depth >= spec.MaxDepth {
			// Deepest allowed level is full of leaves only; hang
			// the remainder off their parents instead.
			break
		}
		p.addNode(parent, node.Depth+1, branching+i/len(level))
		budget--
	}
	if budget > 0 {
		// Spread the last nodes across existing non-leaf levels as
		// extra siblings.
		for i := 0; budget > 0; i++ {
			parent := p.Nodes[i%len(p.Nodes)]
			if parent.Depth >= spec.MaxDepth {
				continue
			}
			p.addNode(parent.Ordinal, parent.Depth+1, branching+i)
			budget--
		}
	}

	return p, nil
}

// addNode appends a planned node and maintains the depth distribution.
func (p *Plan) addNode(parent int64, depth, position int) int64 {
	ordinal := int64(len(p.Nodes) + 1)
	p.Nodes = append(p.Nodes, Node{
		Ordinal:  ordinal,
		Parent:   parent,
		Depth:    depth,
		Position: position,
		Name:     fmt.Sprintf("Category %d", ordinal),
		Slug:     fmt.Sprintf("category-%d", ordinal),
	})
	p.PerDepth[depth]++
	return ordinal
}

func (p *Plan) nodeByOrdinal(ordinal int64) *Node {
	return &p.Nodes[ordinal-1]
}

// estimateRoots sizes the root count so each root's saturated subtree
// capacity matches the requested total: a geometric-series estimate
// capacity = (b^(d+1) - 1) / (b - 1) per root.
func estimateRoots(total, branching, maxDepth int) int {
	capacity := geometricSum(branching, maxDepth)
	roots := int(math.Round(float64(total) / float64(capacity)))
	if roots < 1 {
		roots = 1
	}
	if roots > total {
		roots = total
	}
	return roots
}

// geometricSum is 1 + b + b^2 + ... + b^d, the capacity of one saturated
// subtree.
func geometricSum(b, d int) int {
	if b <= 1 {
		return d + 1
	}
	sum := 1
	pow := 1
	for i := 1; i <= d; i++ {
		pow *= b
		sum += pow
	}
	return sum
}

// theoreticalDistribution is the per-depth count of a fully saturated
// forest with the given root count.
func theoreticalDistribution(roots, branching, maxDepth int) map[int]int {
	dist := make(map[int]int, maxDepth+1)
	count := roots
	for d := 0; d <= maxDepth; d++ {
		dist[d] = count
		count *= branching
	}
	return dist
}

// childCount decides how many children one parent at the given depth
// receives.
func childCount(dist Distribution, rng *rand.Rand, branching, depth, maxDepth int) int {
	switch dist {
	case DistRandom:
		// Uniform in [0, 2b], averaging b.
		return rng.Intn(2*branching + 1)
	case DistLinear:
		// Decays from b at depth 1 toward 1 at maxDepth.
		if maxDepth <= 1 {
			return branching
		}
		decayed := float64(branching) * (1 - float64(depth-1)/float64(maxDepth))
		n := int(math.Round(decayed))
		if n < 1 {
			n = 1
		}
		return n
	default:
		return branching
	}
}

// ValidateNoOrphans verifies that every non-root parent reference resolves
// to a generated node at exactly one level up. The bulk insert path skips
// the mutation service, so this is the integrity cross-check.
func (p *Plan) ValidateNoOrphans() error {
	byOrdinal := make(map[int64]*Node, len(p.Nodes))
	for i := range p.Nodes {
		byOrdinal[p.Nodes[i].Ordinal] = &p.Nodes[i]
	}
	for i := range p.Nodes {
		n := &p.Nodes[i]
		if n.Parent == 0 {
			if n.Depth != 0 {
				return fmt.Errorf("node %d has no parent but depth %d", n.Ordinal, n.Depth)
			}
			continue
		}
		parent, ok := byOrdinal[n.Parent]
		if !ok {
			return fmt.Errorf("node %d references missing parent %d", n.Ordinal, n.Parent)
		}
		if parent.Depth != n.Depth-1 {
			return fmt.Errorf("node %d at depth %d has parent %d at depth %d",
				n.Ordinal, n.Depth, parent.Ordinal, parent.Depth)
		}
	}
	return nil
}

// PreviewEdge is one parent-child link of the preview graph.
type PreviewEdge struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Preview is a bounded graph rendering of a plan for visual inspection
// before committing to storage.
type Preview struct {
	Nodes     []Node        `json:"nodes"`
	Edges     []PreviewEdge `json:"edges"`
	PerDepth  map[int]int   `json:"per_depth"`
	Truncated bool          `json:"truncated"`
}

// Preview returns up to maxNodes nodes (plan order, so complete levels
// come first) with their edges and the full per-level distribution.
func (p *Plan) Preview(maxNodes int) *Preview {
	if maxNodes <= 0 || maxNodes > len(p.Nodes) {
		maxNodes = len(p.Nodes)
	}
	pv := &Preview{
		Nodes:     p.Nodes[:maxNodes],
		PerDepth:  p.PerDepth,
		Truncated: maxNodes < len(p.Nodes),
	}
	for _, n := range pv.Nodes {
		if n.Parent != 0 {
			pv.Edges = append(pv.Edges, PreviewEdge{From: n.Parent, To: n.Ordinal})
		}
	}
	return pv
}
