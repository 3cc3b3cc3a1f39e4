/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"meshforge/internal/snap"
)

func countingServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Opting out must keep the workstation fully offline: session counters and
// crash reports are dropped before anything is queued.
func TestOptOutKeepsClientOffline(t *testing.T) {
	var hits int32
	srv := countingServer(t, &hits)

	// Consume the one-time env init so the explicit install below sticks.
	InitDefault()
	NewDefault(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	if Enabled() {
		t.Fatalf("opted-out default client reports enabled")
	}

	SnapSession(snap.Stats{Calculations: 9, SnapsApplied: 4, Candidates: 30})
	UploadCrash([]byte("dropped"))
	defaultClient.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("opted-out client made %d requests", n)
	}
}

// An event without a name never reaches the queue, even when opted in.
func TestNamelessEventIsDropped(t *testing.T) {
	var hits int32
	srv := countingServer(t, &hits)

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c.Close()

	c.Event("", map[string]any{"calculations": 1})
	c.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("nameless event produced %d requests", n)
	}
}
