/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meshforge/internal/geom"
	"meshforge/internal/snap"
)

func TestSignAndVerifyToken(t *testing.T) {
	secret := "test-secret"
	exp := time.Now().Add(time.Hour)
	tok, err := signToken(secret, "alice", exp)
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	sub, err := verifyToken(secret, tok)
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("subject = %q", sub)
	}

	if _, err := verifyToken("wrong-secret", tok); err == nil {
		t.Fatalf("expected bad signature error")
	}
	if _, err := verifyToken(secret, "garbage"); err == nil {
		t.Fatalf("expected format error")
	}

	expired, err := signToken(secret, "bob", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if _, err := verifyToken(secret, expired); err == nil {
		t.Fatalf("expected expired token error")
	}
}

func TestWithAuthMiddleware(t *testing.T) {
	secret := "test-secret"
	var gotSub string
	h := withAuth(secret, func(w http.ResponseWriter, r *http.Request, subject string) {
		gotSub = subject
		w.WriteHeader(http.StatusOK)
	})

	// Missing header
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", rec.Code)
	}

	// Valid token
	tok, _ := signToken(secret, "carol", time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK || gotSub != "carol" {
		t.Fatalf("valid token: status %d subject %q", rec.Code, gotSub)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0002_snapshot_index.sql")
	if err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("nodigits.sql"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(entries))
	}
}

// Client tests run against a fake server implementing the API shape.
func TestClientListAndGet(t *testing.T) {
	cfg := snap.NewConfig()
	cfg.SeedDefaultZones(geom.R(0, 0, 1280, 800))
	doc := cfg.Snapshot()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/presets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, []Preset{{ID: 1, Name: "workshop defaults", Version: 3}})
	})
	mux.HandleFunc("/api/presets/1/settings", func(w http.ResponseWriter, r *http.Request) {
		b, _ := json.Marshal(doc)
		writeJSON(w, http.StatusOK, map[string]any{
			"preset_id":  1,
			"version":    3,
			"created_at": time.Now().UTC().Format(time.RFC3339),
			"settings":   json.RawMessage(b),
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok")
	ctx := context.Background()

	list, err := c.ListPresets(ctx)
	if err != nil {
		t.Fatalf("ListPresets: %v", err)
	}
	if len(list) != 1 || list[0].Name != "workshop defaults" {
		t.Fatalf("unexpected list: %+v", list)
	}

	env, err := c.GetPresetSettings(ctx, 1)
	if err != nil {
		t.Fatalf("GetPresetSettings: %v", err)
	}
	got, err := env.DecodeSettings()
	if err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if len(got.SnapZones) != 4 {
		t.Fatalf("expected 4 zones, got %d", len(got.SnapZones))
	}
}

func TestClientUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")
	if _, err := c.ListPresets(context.Background()); err == nil {
		t.Fatalf("expected error for unauthorized response")
	}
}
