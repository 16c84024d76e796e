package catalog

import (
	"errors"
	"reflect"
	"testing"
)

const tomlSource = `
[[material]]
mat_data = """*MAT_ELASTIC_TITLE
Steel
1 7.85e-9 210000 0.3"""
app = ["automotive"]
ref = "Handbook of steels"
units = "mm-t-s"

[[material]]
eos_data = "*EOS_GRUNEISEN\n1 0.5"
app = "defense"
url = "https://example.com/eos"
`

const yamlSource = `
material:
  - mat_data: |
      *MAT_JOHNSON_COOK
      1 7.85e-9 77000
    app: [ballistics, defense]
    ref: Johnson and Cook 1983
  - just a string
`

const jsonSource = `{"material": [{"mat_data": "*MAT_RIGID\n1", "app": ["tooling"], "comments": 7}]}`

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        Format
	}{
		{"steel.toml", "", FormatTOML},
		{"steel.TOML", "", FormatTOML},
		{"steel.yaml", "", FormatYAML},
		{"steel.yml", "", FormatYAML},
		{"steel.json", "", FormatJSON},
		{"https://example.com/data/steel.yaml?rev=2", "", FormatYAML},
		{"steel", "application/yaml", FormatYAML},
		{"steel", "application/json; charset=utf-8", FormatJSON},
		{"steel", "text/plain", FormatTOML},
		{"steel", "", FormatTOML},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.name, tt.contentType); got != tt.want {
			t.Errorf("DetectFormat(%q, %q) = %q, want %q", tt.name, tt.contentType, got, tt.want)
		}
	}
}

func TestDecodeSource_TOML(t *testing.T) {
	entries, err := DecodeSource(FormatTOML, []byte(tomlSource))
	if err != nil {
		t.Fatalf("DecodeSource failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0].Entry
	if first == nil {
		t.Fatalf("first entry failed: %v", entries[0].Err)
	}
	if first.MatData != "*MAT_ELASTIC_TITLE\nSteel\n1 7.85e-9 210000 0.3" {
		t.Errorf("MatData = %q", first.MatData)
	}
	if !reflect.DeepEqual(first.App, []string{"automotive"}) || first.Units != "mm-t-s" {
		t.Errorf("unexpected entry: %+v", first)
	}

	second := entries[1].Entry
	if second == nil {
		t.Fatalf("second entry failed: %v", entries[1].Err)
	}
	// A single app tag is promoted to a list
	if !reflect.DeepEqual(second.App, []string{"defense"}) {
		t.Errorf("App = %v", second.App)
	}
	if entries[1].Position != 1 {
		t.Errorf("Position = %d, want 1", entries[1].Position)
	}
}

func TestDecodeSource_YAML(t *testing.T) {
	entries, err := DecodeSource(FormatYAML, []byte(yamlSource))
	if err != nil {
		t.Fatalf("DecodeSource failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if e := entries[0].Entry; e == nil || e.Ref != "Johnson and Cook 1983" || len(e.App) != 2 {
		t.Errorf("unexpected first entry: %+v (%v)", e, entries[0].Err)
	}
	if entries[1].Entry != nil || entries[1].Err == nil {
		t.Errorf("expected scalar element to be rejected, got %+v", entries[1])
	}
}

func TestDecodeSource_JSON(t *testing.T) {
	entries, err := DecodeSource(FormatJSON, []byte(jsonSource))
	if err != nil {
		t.Fatalf("DecodeSource failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Entry == nil {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if got := entries[0].Entry.Comments; got != "7" {
		t.Errorf("Comments = %q, want weakly converted \"7\"", got)
	}
}

func TestDecodeSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		noMat  bool
	}{
		{"bad toml", FormatTOML, "[[material]\nmat_data = 1", false},
		{"bad yaml", FormatYAML, "material: [unclosed", false},
		{"bad json", FormatJSON, "{", false},
		{"missing material", FormatTOML, "title = \"x\"", true},
		{"material not a list", FormatYAML, "material: {mat_data: x}", true},
		{"empty yaml", FormatYAML, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSource(tt.format, []byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, errNoMaterialArray); got != tt.noMat {
				t.Errorf("errors.Is(err, errNoMaterialArray) = %v, want %v (err: %v)", got, tt.noMat, err)
			}
		})
	}
}
