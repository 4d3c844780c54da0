// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"taxonomy/internal/cache"
	"taxonomy/internal/gen"
	"taxonomy/internal/models"
	"taxonomy/internal/repair"
	"taxonomy/internal/store"
)

// Admin groups the administrative/offline operations: cache warmup, path
// backfill, and synthetic tree generation. These are expected to be run
// by operators, not inside normal user traffic.
type Admin struct {
	store      *store.CategoryStore
	cache      *cache.CategoryCache
	backfiller *repair.Backfiller
	inserter   *gen.Inserter
}

// NewAdmin creates the admin handler group.
func NewAdmin(st *store.CategoryStore, cc *cache.CategoryCache, bf *repair.Backfiller, ins *gen.Inserter) *Admin {
	return &Admin{store: st, cache: cc, backfiller: bf, inserter: ins}
}

// WarmupCache handles POST /api/admin/cache/warmup. Idempotent.
func (h *Admin) WarmupCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Warmup(r.Context(), h.store); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"warmed": true})
}

// BackfillPaths handles POST /api/admin/paths/backfill.
func (h *Admin) BackfillPaths(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChunkSize int  `json:"chunk_size"`
		DryRun    bool `json:"dry_run"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := h.backfiller.Run(r.Context(), req.ChunkSize, req.DryRun)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GenerateTree handles POST /api/admin/tree/generate: builds a synthetic
// tree plan, returns its preview and summary, and bulk-inserts it unless
// dry_run is set.
func (h *Admin) GenerateTree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Total       int    `json:"total"`
		MaxDepth    int    `json:"max_depth"`
		AvgSiblings int    `json:"avg_siblings"`
		Dist        string `json:"distribution"`
		Seed        int64  `json:"seed"`
		DryRun      bool   `json:"dry_run"`
		PreviewMax  int    `json:"preview_max"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	plan, err := gen.Build(gen.Spec{
		Total:       req.Total,
		MaxDepth:    req.MaxDepth,
		AvgSiblings: req.AvgSiblings,
		Dist:        gen.Distribution(req.Dist),
		Seed:        req.Seed,
	})
	if err != nil {
		writeError(w, &models.ValidationError{Fields: map[string]string{"spec": err.Error()}})
		return
	}

	summary, err := h.inserter.Insert(r.Context(), plan, req.DryRun)
	if err != nil {
		writeError(w, err)
		return
	}

	previewMax := req.PreviewMax
	if previewMax == 0 {
		previewMax = 100
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"preview": plan.Preview(previewMax),
	})
}
