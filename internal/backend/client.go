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
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meshforge/internal/snap"
)

// Client is a minimal HTTP client for the preset sharing API.
// It supports the read-only operations used by the desktop app under a
// feature flag.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Preset is a minimal projection for listing.
type Preset struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// ListPresets returns available team presets (read-only).
func (c *Client) ListPresets(ctx context.Context) ([]Preset, error) {
	var list []Preset
	if err := c.doJSON(ctx, http.MethodGet, "/api/presets", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SettingsEnvelope matches the server response for the latest settings
// snapshot of a preset.
type SettingsEnvelope struct {
	PresetID  int64           `json:"preset_id"`
	Version   int64           `json:"version"`
	CreatedAt string          `json:"created_at"`
	Settings  json.RawMessage `json:"settings"`
}

// GetPresetSettings fetches the latest settings snapshot for a preset.
func (c *Client) GetPresetSettings(ctx context.Context, presetID int64) (*SettingsEnvelope, error) {
	var env SettingsEnvelope
	path := fmt.Sprintf("/api/presets/%d/settings", presetID)
	if err := c.doJSON(ctx, http.MethodGet, path, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeSettings decodes the envelope payload into a settings document.
func (e *SettingsEnvelope) DecodeSettings() (snap.SettingsDoc, error) {
	var doc snap.SettingsDoc
	if err := json.Unmarshal(e.Settings, &doc); err != nil {
		return doc, fmt.Errorf("decode preset settings: %w", err)
	}
	return doc, nil
}
