/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the snapping subsystem's state under a profile
// directory: snap settings as schema-validated JSON with timestamped backups
// and atomic writes, plus an embedded SQLite database for snap statistics.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "meshforge/internal/log"
	"meshforge/internal/snap"
)

const (
	SettingsFileName = "snapsettings.json"
	BackupsDirName   = "backups"
)

// ProfileHandle tracks one snapping profile on disk. Root is the profile
// directory containing snapsettings.json and the backups folder.
type ProfileHandle struct {
	Root         string
	SettingsPath string
	Doc          snap.SettingsDoc
}

// InitProfile creates the profile directory (if needed) and writes the given
// settings document transactionally.
func InitProfile(root string, doc snap.SettingsDoc) (*ProfileHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("profile root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create profile root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create backups dir: %w", err)
	}
	ph := &ProfileHandle{
		Root:         root,
		SettingsPath: filepath.Join(root, SettingsFileName),
		Doc:          doc,
	}
	if err := Save(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

// Open loads an existing profile. A missing or corrupt settings file falls
// back to the latest backup; only when both fail does Open return an error.
func Open(root string) (*ProfileHandle, error) {
	l := applog.WithComponent("storage")
	spath := filepath.Join(root, SettingsFileName)
	doc, err := readSettings(spath)
	if err != nil {
		l.Warn("settings unreadable, trying backup", slog.String("path", spath), slog.Any("err", err))
		bdoc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open settings: %w; backup attempt: %v", err, berr)
		}
		doc = bdoc
	}
	return &ProfileHandle{Root: root, SettingsPath: spath, Doc: doc}, nil
}

// Save writes the handle's document to disk with transactional semantics,
// keeping a timestamped backup of the previous file.
func Save(ph *ProfileHandle) error {
	if ph == nil {
		return errors.New("nil ProfileHandle")
	}
	if ph.Root == "" || ph.SettingsPath == "" {
		return errors.New("invalid ProfileHandle: missing paths")
	}
	data, err := json.MarshalIndent(ph.Doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.SettingsPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", SettingsFileName, stamp))
		if cerr := copyFile(ph.SettingsPath, bpath); cerr != nil {
			return fmt.Errorf("backup current settings: %w", cerr)
		}
	}

	// Transactional write: temp file in the same directory, then rename.
	dir := filepath.Dir(ph.SettingsPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", SettingsFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp settings: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(ph.SettingsPath); err == nil {
		_ = os.Remove(ph.SettingsPath)
	}
	if rerr := os.Rename(temp, ph.SettingsPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace settings: %w", rerr)
	}
	return nil
}

// Export writes the document as indented JSON to an arbitrary path, without
// backups or schema involvement. Used by the preferences dialog's export
// button.
func Export(doc snap.SettingsDoc, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return writeFileSync(path, data)
}

// Import reads and validates a settings document from an arbitrary path.
func Import(path string) (snap.SettingsDoc, error) {
	return readSettings(path)
}

// readSettings reads, schema-validates and decodes a settings file.
func readSettings(path string) (snap.SettingsDoc, error) {
	var doc snap.SettingsDoc
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read settings: %w", err)
	}
	if err := ValidateSettingsJSON(b); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("parse settings: %w", err)
	}
	return doc, nil
}

// ValidateSettingsJSON checks raw bytes against the embedded JSON Schema.
// Structural violations (wrong types, missing required blocks) fail here;
// per-zone semantic validation stays with snap.Config, which skips bad
// zones individually.
func ValidateSettingsJSON(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(settingsSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("settings do not conform to schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// AutosaveCrashSnapshot writes the in-memory document to the backups folder
// without touching the live settings file. Used by the crash handler, so it
// must not rely on the live file being healthy.
func AutosaveCrashSnapshot(ph *ProfileHandle) (string, error) {
	if ph == nil || ph.Root == "" {
		return "", errors.New("no profile to snapshot")
	}
	data, err := json.MarshalIndent(ph.Doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("crash-autosave-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash autosave: %w", err)
	}
	return path, nil
}

// openFromLatestBackup tries the newest timestamped backup.
func openFromLatestBackup(root string) (snap.SettingsDoc, error) {
	var doc snap.SettingsDoc
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return doc, fmt.Errorf("read backups dir: %w", err)
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasPrefix(e.Name(), SettingsFileName) && strings.HasSuffix(e.Name(), ".bak") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return doc, errors.New("no backups found")
	}
	// Timestamped names sort lexicographically; newest last.
	sort.Strings(names)
	for i := len(names) - 1; i >= 0; i-- {
		d, rerr := readSettings(filepath.Join(bdir, names[i]))
		if rerr == nil {
			return d, nil
		}
		err = rerr
	}
	return doc, fmt.Errorf("all backups unreadable: %w", err)
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst if it exists.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
