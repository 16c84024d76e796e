package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/matmap/internal/model"
)

// Format is a source file serialization
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// materialKey is the top-level collection every source file must carry
const materialKey = "material"

var errNoMaterialArray = errors.New("missing or invalid 'material' array")

// SourceEntry is one element of a file's material collection. Entry is nil
// when the element could not be read as a material record.
type SourceEntry struct {
	Position int
	Entry    *model.RawMaterialEntry
	Err      error
}

// DetectFormat picks the decoder for a source by file extension, then by
// content type. Unknown sources are read as TOML.
func DetectFormat(name, contentType string) Format {
	switch strings.ToLower(path.Ext(stripQuery(name))) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case strings.Contains(mediaType, "yaml"):
			return FormatYAML
		case strings.HasSuffix(mediaType, "json"):
			return FormatJSON
		}
	}
	return FormatTOML
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}

// DecodeSource parses a source document and returns its material collection
// in document order
func DecodeSource(format Format, data []byte) ([]SourceEntry, error) {
	doc, err := decodeDocument(format, data)
	if err != nil {
		return nil, err
	}

	items, ok := doc[materialKey].([]any)
	if !ok {
		return nil, errNoMaterialArray
	}

	entries := make([]SourceEntry, 0, len(items))
	for i, item := range items {
		entry, err := decodeEntry(item)
		entries = append(entries, SourceEntry{Position: i, Entry: entry, Err: err})
	}
	return entries, nil
}

func decodeDocument(format Format, data []byte) (map[string]any, error) {
	doc := make(map[string]any)

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	}

	if doc == nil {
		// YAML "null" or an empty document
		doc = map[string]any{}
	}
	return doc, nil
}

// decodeEntry maps one collection element onto RawMaterialEntry. Scalars are
// weakly converted so that a numeric card or a single app tag still decodes.
func decodeEntry(item any) (*model.RawMaterialEntry, error) {
	if _, ok := item.(map[string]any); !ok {
		return nil, fmt.Errorf("entry is %T, not a table", item)
	}

	var entry model.RawMaterialEntry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &entry,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(item); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &entry, nil
}
