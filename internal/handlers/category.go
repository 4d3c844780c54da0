// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taxonomy/internal/models"
	"taxonomy/internal/service"
)

// Category groups the handlers for category reads and mutations.
type Category struct {
	reader  *service.CategoryReader
	service *service.CategoryService
}

// NewCategory creates the category handler group.
func NewCategory(reader *service.CategoryReader, svc *service.CategoryService) *Category {
	return &Category{reader: reader, service: svc}
}

// categoryRequest is the JSON shape of create and update bodies. ParentID
// is kept raw so "absent" and "explicit null" (move to root) stay
// distinguishable.
type categoryRequest struct {
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	MetaTitle       string          `json:"meta_title"`
	MetaDescription string          `json:"meta_description"`
	MetaKeywords    string          `json:"meta_keywords"`
	Status          *bool           `json:"status"`
	Position        *int            `json:"position"`
	ParentID        json.RawMessage `json:"parent_id"`
}

func (req *categoryRequest) attrs() (service.CategoryAttrs, error) {
	a := service.CategoryAttrs{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		MetaKeywords:    req.MetaKeywords,
		Status:          req.Status,
		Position:        req.Position,
	}
	if len(req.ParentID) > 0 {
		a.ParentProvided = true
		if string(req.ParentID) != "null" {
			var id int64
			if err := json.Unmarshal(req.ParentID, &id); err != nil {
				return a, &models.ValidationError{Fields: map[string]string{"parent_id": "must be an id or null"}}
			}
			a.ParentID = &id
		}
	}
	return a, nil
}

// List handles GET /api/categories with the full filter set.
func (h *Category) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.CategoryFilter{
		Search:      q.Get("search"),
		WithTrashed: q.Get("with_trashed") == "true",
	}
	if v := q.Get("status"); v != "" {
		status := v == "true" || v == "1"
		filter.Status = &status
	}
	switch v := q.Get("parent_id"); v {
	case "":
	case "root":
		filter.RootOnly = true
	default:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, &models.ValidationError{Fields: map[string]string{"parent_id": "must be an id or \"root\""}})
			return
		}
		filter.ParentID = &id
	}
	if v := q.Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, &models.ValidationError{Fields: map[string]string{"depth": "must be an integer"}})
			return
		}
		filter.Depth = &d
	}
	if v := q.Get("max_depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, &models.ValidationError{Fields: map[string]string{"max_depth": "must be an integer"}})
			return
		}
		filter.MaxDepth = &d
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := h.reader.List(r.Context(), filter, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Tree handles GET /api/categories/tree?active=true.
func (h *Category) Tree(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	forest, err := h.reader.Tree(r.Context(), onlyActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": forest})
}

// Statistics handles GET /api/categories/statistics.
func (h *Category) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Get handles GET /api/categories/{id}.
func (h *Category) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.reader.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Breadcrumbs handles GET /api/categories/{id}/breadcrumbs.
func (h *Category) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bc, err := h.reader.Breadcrumbs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bc)
}

// Descendants handles GET /api/categories/{id}/descendants.
func (h *Category) Descendants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := h.reader.Descendants(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"descendants": items})
}

// Create handles POST /api/categories.
func (h *Category) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	attrs, err := req.attrs()
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/categories/{id}. A changed parent_id moves the
// whole subtree.
func (h *Category) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	attrs, err := req.attrs()
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Move handles PUT /api/categories/{id}/move.
func (h *Category) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		ParentID *int64 `json:"parent_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	moved, err := h.service.Move(r.Context(), id, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// Delete handles DELETE /api/categories/{id}.
func (h *Category) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Reorder handles PUT /api/categories/reorder. All positions land or none.
func (h *Category) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Positions []models.PositionAssignment `json:"positions"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.Reorder(r.Context(), req.Positions); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reordered": true})
}

// BatchStatus handles PUT /api/categories/batch/status.
func (h *Category) BatchStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs    []int64 `json:"ids"`
		Status *bool   `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Status == nil {
		writeError(w, &models.ValidationError{Fields: map[string]string{"status": "is required"}})
		return
	}
	affected, err := h.service.BatchSetStatus(r.Context(), req.IDs, *req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"affected": affected})
}

// BatchDelete handles DELETE /api/categories/batch. Per-id partial
// success: the response says which ids were deleted and which skipped.
func (h *Category) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.BatchDelete(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// pathID parses the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, &models.ValidationError{Fields: map[string]string{"id": "must be a positive integer"}})
		return 0, false
	}
	return id, true
}
