// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestCategoryRequestAttrsParentID(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		var req categoryRequest
		if err := json.Unmarshal([]byte(`{"name":"a"}`), &req); err != nil {
			t.Fatal(err)
		}
		attrs, err := req.attrs()
		if err != nil {
			t.Fatal(err)
		}
		if attrs.ParentProvided {
			t.Error("absent parent_id must not count as provided")
		}
	})

	t.Run("explicit null", func(t *testing.T) {
		var req categoryRequest
		if err := json.Unmarshal([]byte(`{"name":"a","parent_id":null}`), &req); err != nil {
			t.Fatal(err)
		}
		attrs, err := req.attrs()
		if err != nil {
			t.Fatal(err)
		}
		if !attrs.ParentProvided || attrs.ParentID != nil {
			t.Errorf("null parent_id: provided=%v id=%v, want provided with nil id",
				attrs.ParentProvided, attrs.ParentID)
		}
	})

	t.Run("id", func(t *testing.T) {
		var req categoryRequest
		if err := json.Unmarshal([]byte(`{"name":"a","parent_id":7}`), &req); err != nil {
			t.Fatal(err)
		}
		attrs, err := req.attrs()
		if err != nil {
			t.Fatal(err)
		}
		if !attrs.ParentProvided || attrs.ParentID == nil || *attrs.ParentID != 7 {
			t.Errorf("parent_id 7: provided=%v id=%v", attrs.ParentProvided, attrs.ParentID)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		var req categoryRequest
		if err := json.Unmarshal([]byte(`{"name":"a","parent_id":"seven"}`), &req); err != nil {
			t.Fatal(err)
		}
		if _, err := req.attrs(); err == nil {
			t.Error("non-numeric parent_id accepted")
		}
	})
}

// parseID runs pathID against a request carrying a chi route parameter,
// the way the router would deliver it.
func parseID(value string) (int64, bool, *httptest.ResponseRecorder) {
	r := httptest.NewRequest("GET", "/api/categories/"+value, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", value)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	id, ok := pathID(rec, r)
	return id, ok, rec
}

func TestPathID(t *testing.T) {
	id, ok, _ := parseID("5")
	if !ok || id != 5 {
		t.Errorf("parseID(5) = %d, %v", id, ok)
	}
	for _, bad := range []string{"", "abc", "0", "-3", "1.5"} {
		_, ok, rec := parseID(bad)
		if ok {
			t.Errorf("id %q accepted", bad)
			continue
		}
		if rec.Code != 422 {
			t.Errorf("id %q: status = %d, want 422", bad, rec.Code)
		}
	}
}

func TestListRejectsBadQueryParams(t *testing.T) {
	h := &Category{} // invalid params are rejected before any service call

	for _, tc := range []struct {
		name  string
		query string
	}{
		{"bad parent_id", "?parent_id=abc"},
		{"bad depth", "?depth=deep"},
		{"bad max_depth", "?max_depth=x"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest("GET", "/api/categories"+tc.query, nil))
			if rec.Code != 422 {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestBatchStatusRequiresStatus(t *testing.T) {
	h := &Category{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/categories/batch/status",
		strings.NewReader(`{"ids": [1, 2]}`))
	h.BatchStatus(rec, req)
	if rec.Code != 422 {
		t.Errorf("status = %d, want 422", rec.Code)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body.Fields["status"]; !ok {
		t.Errorf("fields = %v, want a status entry", body.Fields)
	}
}
