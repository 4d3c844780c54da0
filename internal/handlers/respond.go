// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers exposes the category engine's operation contracts over
// JSON. Transport stays thin: parse, call, map typed errors to statuses.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"taxonomy/internal/models"
	"taxonomy/internal/treepath"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON renders v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Structural-safety
// rejections (cycle, depth, live children) are 409s, never 500s.
func writeError(w http.ResponseWriter, err error) {
	var (
		notFound  *models.NotFoundError
		valErr    *models.ValidationError
		cycle     *models.CycleError
		depth     *models.DepthExceededError
		children  *models.HasChildrenError
		corrupt   *treepath.CorruptPathError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFound.Error()})
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Fields: valErr.Fields})
	case errors.As(err, &cycle):
		writeJSON(w, http.StatusConflict, errorBody{Error: cycle.Error()})
	case errors.As(err, &depth):
		writeJSON(w, http.StatusConflict, errorBody{Error: depth.Error()})
	case errors.As(err, &children):
		writeJSON(w, http.StatusConflict, errorBody{Error: children.Error()})
	case errors.As(err, &corrupt):
		// Degraded read: the row needs a path backfill, not a retry.
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "category data needs repair"})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &models.ValidationError{Fields: map[string]string{"body": "malformed JSON: " + err.Error()}}
	}
	return nil
}
