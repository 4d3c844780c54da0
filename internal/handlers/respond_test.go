// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"taxonomy/internal/models"
	"taxonomy/internal/treepath"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &models.NotFoundError{ID: 7}, 404},
		{"validation", &models.ValidationError{Fields: map[string]string{"name": "is required"}}, 422},
		{"cycle", &models.CycleError{ID: 1, NewParentID: 2}, 409},
		{"depth", &models.DepthExceededError{MaxDepth: 10, ResultDepth: 11}, 409},
		{"has children", &models.HasChildrenError{ID: 1, Children: 3}, 409},
		{"corrupt path", &treepath.CorruptPathError{Path: "bad", Reason: "missing slashes"}, 500},
		{"unknown", errors.New("boom"), 500},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func TestWriteErrorMapsWrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), &models.NotFoundError{ID: 3})
	rec := httptest.NewRecorder()
	writeError(rec, wrapped)
	if rec.Code != 404 {
		t.Errorf("wrapped not-found status = %d, want 404", rec.Code)
	}
}

func TestWriteErrorDoesNotLeakInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: password authentication failed"))

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "internal error" {
		t.Errorf("body = %q, internal details must not reach the client", body.Error)
	}
}

func TestWriteErrorValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, &models.ValidationError{Fields: map[string]string{"name": "is required"}})

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Fields["name"] != "is required" {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestDecodeBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"nmae": "typo"}`))
	var dst categoryRequest
	err := decodeBody(req, &dst)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestDecodeBodyRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name": `))
	var dst categoryRequest
	var verr *models.ValidationError
	if err := decodeBody(req, &dst); !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}
