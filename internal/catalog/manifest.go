package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/matmap/internal/model"
)

// SourceExtensions are the file types BuildManifest lists by default
var SourceExtensions = []string{".toml", ".yaml", ".yml", ".json"}

// manifestDescriptor is the object form of a manifest item
type manifestDescriptor struct {
	Filename     *string `json:"filename"`
	Modified     string  `json:"modified"`
	LastModified string  `json:"last_modified"`
}

// ParseManifest reads a JSON array of filenames or {filename, ...} descriptors
func ParseManifest(data []byte) ([]model.ManifestEntry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	entries := make([]model.ManifestEntry, 0, len(items))
	for i, raw := range items {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			if strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("parse manifest: item %d: empty filename", i)
			}
			entries = append(entries, model.ManifestEntry{Filename: name})
			continue
		}

		var desc manifestDescriptor
		if err := json.Unmarshal(raw, &desc); err != nil {
			return nil, fmt.Errorf("parse manifest: item %d: expected filename or object: %w", i, err)
		}
		if desc.Filename == nil || strings.TrimSpace(*desc.Filename) == "" {
			return nil, fmt.Errorf("parse manifest: item %d: missing filename", i)
		}

		entry := model.ManifestEntry{Filename: *desc.Filename}
		for _, ts := range []string{desc.Modified, desc.LastModified} {
			if t, ok := parseTimestamp(ts); ok {
				entry.Modified = &t
				break
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// BuildManifest lists the source files directly under dir, sorted by name.
// exts defaults to SourceExtensions.
func BuildManifest(dir string, exts []string) ([]model.ManifestEntry, error) {
	if len(exts) == 0 {
		exts = SourceExtensions
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	var entries []model.ManifestEntry
	for _, de := range dirEntries {
		if de.IsDir() || !slices.Contains(exts, strings.ToLower(filepath.Ext(de.Name()))) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		modified := info.ModTime().UTC().Truncate(time.Second)
		entries = append(entries, model.ManifestEntry{Filename: de.Name(), Modified: &modified})
	}

	slices.SortFunc(entries, func(a, b model.ManifestEntry) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	return entries, nil
}

// WriteManifest writes entries as an indented JSON descriptor array
func WriteManifest(w io.Writer, entries []model.ManifestEntry) error {
	if entries == nil {
		entries = []model.ManifestEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
