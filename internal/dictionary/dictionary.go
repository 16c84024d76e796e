// Package dictionary resolves card titles to short identifier codes for the
// material, EOS and thermal domains.
//
// A dictionary document is a JSON object. The catalog's own files map codes to
// titles ({"MAT_024": "*MAT_PIECEWISE_LINEAR_PLASTICITY"}); documents keyed the
// other way ({"Steel": "MAT_024"}) resolve as well. Resolve consults the
// inverted map first and falls back to the document's own keys.
package dictionary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ppiankov/matmap/internal/model"
)

// Collision records two document keys that share a value. The later key wins
// in the inverted map.
type Collision struct {
	Value   string
	Dropped string
	Kept    string
}

// Dictionary is an immutable two-way title/code table. The zero value and a
// nil *Dictionary are empty.
type Dictionary struct {
	forward    map[string]string // Document key -> value
	reverse    map[string]string // Document value -> key
	collisions []Collision
}

type pair struct {
	key   string
	value string
}

// New builds a dictionary from a map. Which key wins a collision is
// unspecified; use Parse when document order matters.
func New(pairs map[string]string) *Dictionary {
	ordered := make([]pair, 0, len(pairs))
	for k, v := range pairs {
		ordered = append(ordered, pair{k, v})
	}
	return build(ordered)
}

// Parse decodes a JSON object document. Entries whose value is not a string
// are skipped and reported in the returned skipped list.
func Parse(data []byte) (*Dictionary, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("read dictionary: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.New("read dictionary: document is not a JSON object")
	}

	var pairs []pair
	var skipped []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("read dictionary key: %w", err)
		}
		key, _ := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("read dictionary value for %q: %w", key, err)
		}
		s, ok := value.(string)
		if !ok {
			skipped = append(skipped, key)
			continue
		}
		pairs = append(pairs, pair{key, s})
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("read dictionary: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("read dictionary: trailing data after object")
	}

	return build(pairs), skipped, nil
}

func build(pairs []pair) *Dictionary {
	d := &Dictionary{
		forward: make(map[string]string, len(pairs)),
		reverse: make(map[string]string, len(pairs)),
	}

	// A repeated document key keeps its first position and takes its last value
	order := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := d.forward[p.key]; !ok {
			order = append(order, p.key)
		}
		d.forward[p.key] = p.value
	}

	// Invert only once the document keys are final
	for _, key := range order {
		value := d.forward[key]
		if prev, ok := d.reverse[value]; ok {
			d.collisions = append(d.collisions, Collision{Value: value, Dropped: prev, Kept: key})
		}
		d.reverse[value] = key
	}
	return d
}

// Resolve returns the code for title, or model.Unresolved
func (d *Dictionary) Resolve(title string) string {
	if d == nil || !model.IsResolved(title) {
		return model.Unresolved
	}
	if code, ok := d.reverse[title]; ok {
		return code
	}
	if code, ok := d.forward[title]; ok {
		return code
	}
	return model.Unresolved
}

// Len returns the number of document entries
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.forward)
}

// Collisions lists values shared by more than one document key
func (d *Dictionary) Collisions() []Collision {
	if d == nil {
		return nil
	}
	return d.collisions
}
