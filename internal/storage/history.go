/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meshforge/internal/snap"
	"meshforge/internal/undo"
)

// SettingsHistory layers bounded undo over a profile's settings document.
// Callers push the current document before replacing it; Undo swaps the
// previous snapshot back into ph.Doc. Rapid pushes within the coalescing
// interval collapse into one step, so a burst of zone edits from the
// preferences flow never becomes a pile of micro-undos.
type SettingsHistory struct {
	mgr *undo.Manager
	now func() time.Time
}

// NewSettingsHistory builds a history with caps sized for settings documents.
func NewSettingsHistory() *SettingsHistory {
	return &SettingsHistory{
		mgr: undo.NewManager(undo.Config{
			MaxBytes:      8 * 1024 * 1024,
			MaxPerProfile: 50,
			MinInterval:   300 * time.Millisecond,
		}),
		now: time.Now,
	}
}

// Push captures ph.Doc as an undo step.
func (h *SettingsHistory) Push(ph *ProfileHandle) error {
	if ph == nil {
		return errors.New("profile handle is nil")
	}
	blob, err := json.Marshal(ph.Doc)
	if err != nil {
		return fmt.Errorf("snapshot settings: %w", err)
	}
	h.mgr.PushSnapshot(undo.Snapshot{Profile: ph.Root, Blob: blob, TS: h.now()})
	return nil
}

// Undo restores the most recent snapshot into ph.Doc, reporting false when
// there is nothing to undo. The caller persists and re-applies the document.
func (h *SettingsHistory) Undo(ph *ProfileHandle) (bool, error) {
	if ph == nil {
		return false, errors.New("profile handle is nil")
	}
	s, ok := h.mgr.Undo(ph.Root)
	if !ok {
		return false, nil
	}
	var doc snap.SettingsDoc
	if err := json.Unmarshal(s.Blob, &doc); err != nil {
		return false, fmt.Errorf("restore settings snapshot: %w", err)
	}
	ph.Doc = doc
	return true, nil
}

// Depth returns the number of undo steps currently held.
func (h *SettingsHistory) Depth() int {
	_, _, n := h.mgr.Stats()
	return n
}
