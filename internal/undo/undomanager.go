/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot represents a reversible settings blob for a profile.
// Blob content is opaque to the manager (serialized snap settings documents
// in practice); size is estimated as len(Blob). TS is when the snapshot was
// captured.
type Snapshot struct {
	Profile string
	Blob    []byte
	TS      time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerProfile limits snapshots per profile kept in memory (0 means unlimited).
	MaxPerProfile int
	// MinInterval coalesces snapshots captured within the interval for the same
	// profile, replacing the previous one instead of pushing a new entry. Zone
	// edits from the preferences dialog arrive in bursts, and each keystroke
	// must not become its own undo step.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per profile with performance
// safeguards. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-profile stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	// Set conservative defaults if not provided
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// PushSnapshot records a snapshot for a profile. If within MinInterval from
// the last snapshot on the same profile, it replaces the last one. Clears the
// redo stack for that profile.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Profile]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			// Coalesce: adjust accounting and replace
			m.totalBytes -= len(last.Blob)
			m.totalBytes += len(s.Blob)
			stack[n-1] = s
			m.undo[s.Profile] = stack
			m.redo[s.Profile] = nil
			m.enforceCapsLocked(s.Profile)
			return
		}
	}
	// Push new
	stack = append(stack, s)
	m.undo[s.Profile] = stack
	m.totalBytes += len(s.Blob)
	// Any new change invalidates redo for the profile
	m.redo[s.Profile] = nil
	m.enforceCapsLocked(s.Profile)
}

// Undo pops from the profile undo stack and pushes to the redo stack,
// returning the snapshot.
func (m *Manager) Undo(profile string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[profile]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[profile] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[profile] = append(m.redo[profile], s)
	return s, true
}

// Redo pops from redo and pushes back to undo.
func (m *Manager) Redo(profile string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[profile]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[profile] = r[:len(r)-1]
	m.undo[profile] = append(m.undo[profile], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(profile)
	return s, true
}

// ClearProfile clears undo/redo stacks for a profile to free memory.
func (m *Manager) ClearProfile(profile string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[profile] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, profile)
	delete(m.redo, profile)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, profiles int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profiles = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, profiles, totalSnapshots
}

func (m *Manager) enforceCapsLocked(profile string) {
	// Per-profile depth cap
	if m.cfg.MaxPerProfile > 0 {
		stack := m.undo[profile]
		if len(stack) > m.cfg.MaxPerProfile {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerProfile
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[profile] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all profiles
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestProfile := ""
		oldestIdx := -1
		var oldestTS time.Time
		for p, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestProfile = p
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := m.undo[oldestProfile]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestProfile] = stack[1:]
		if len(m.undo[oldestProfile]) == 0 {
			delete(m.undo, oldestProfile)
		}
	}
}
