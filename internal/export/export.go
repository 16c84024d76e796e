// Package export writes a catalog snapshot as JSON, YAML or an XLSX workbook.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/matmap/internal/catalog"
)

const (
	materialsSheet = "Materials"
	filtersSheet   = "Filters"
)

var materialHeaders = []string{
	"id", "material_title", "material_code", "material_heading",
	"eos_title", "eos_code", "additional_property_title",
	"thermal_property_title", "thermal_property_code",
	"search_tokens", "applications",
	"mid", "ro", "e", "pr", "sigy",
	"units", "ref", "url", "source_file", "position",
}

// JSON writes the snapshot as indented JSON
func JSON(w io.Writer, snap *catalog.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAML writes the snapshot as YAML
func YAML(w io.Writer, snap *catalog.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}

// XLSX writes a workbook with one row per record and a sheet listing the
// filter dimensions
func XLSX(w io.Writer, snap *catalog.Snapshot) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), materialsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range materialHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(materialsSheet, cell, h)
	}

	for i, rec := range snap.Records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(materialsSheet, cell, value)
		}

		set(1, rec.ID)
		set(2, rec.MaterialTitle)
		set(3, rec.MaterialCode)
		set(4, rec.MaterialHeading)
		set(5, rec.EOSTitle)
		set(6, rec.EOSCode)
		set(7, rec.AdditionalPropertyTitle)
		set(8, rec.ThermalPropertyTitle)
		set(9, rec.ThermalPropertyCode)
		set(10, strings.Join(rec.SearchTokens, ", "))
		set(11, strings.Join(rec.Applications, ", "))
		set(12, derefInt(rec.MaterialProperties.MID))
		set(13, derefFloat(rec.MaterialProperties.RO))
		set(14, derefFloat(rec.MaterialProperties.E))
		set(15, derefFloat(rec.MaterialProperties.PR))
		set(16, derefFloat(rec.MaterialProperties.SIGY))
		if rec.Raw != nil {
			set(17, rec.Raw.Units)
			set(18, rec.Raw.Ref)
			set(19, rec.Raw.URL)
		}
		set(20, rec.Origin.File)
		set(21, rec.Origin.Position)
	}

	if _, err := f.NewSheet(filtersSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	_ = f.SetCellValue(filtersSheet, "A1", "material_tokens")
	_ = f.SetCellValue(filtersSheet, "B1", "eos_titles")
	for i, tok := range snap.Index.MaterialTokens {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetCellValue(filtersSheet, cell, tok)
	}
	for i, title := range snap.Index.EOSTitles {
		cell, _ := excelize.CoordinatesToCellName(2, i+2)
		_ = f.SetCellValue(filtersSheet, cell, title)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteFile exports to path, choosing the format by extension
// (.json, .yaml/.yml or .xlsx)
func WriteFile(path string, snap *catalog.Snapshot) error {
	var write func(io.Writer, *catalog.Snapshot) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = JSON
	case ".yaml", ".yml":
		write = YAML
	case ".xlsx":
		write = XLSX
	default:
		return fmt.Errorf("unsupported export format %q (want .json, .yaml or .xlsx)", filepath.Ext(path))
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := write(file, snap); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
