package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DefaultLanguage is the language tag whose rows are stored without a
// language reference.
const DefaultLanguage = "default"

// NoParent marks a root entry.
const NoParent = -1

// Entry is one jurisdiction tuple: [localID, localName, parent|null, ...courts].
// Parent is a position within the same language's entry list.
type Entry struct {
	LocalID   string
	LocalName string
	Parent    int
	Courts    []int
}

func (e Entry) IsRoot() bool {
	return e.Parent == NoParent
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	if len(fields) < 3 {
		return fmt.Errorf("entry: expected at least 3 fields, got %d", len(fields))
	}

	if err := json.Unmarshal(fields[0], &e.LocalID); err != nil {
		return fmt.Errorf("entry id: %w", err)
	}
	if err := json.Unmarshal(fields[1], &e.LocalName); err != nil {
		return fmt.Errorf("entry %q name: %w", e.LocalID, err)
	}

	var parent *int
	if err := json.Unmarshal(fields[2], &parent); err != nil {
		return fmt.Errorf("entry %q parent: %w", e.LocalID, err)
	}
	e.Parent = NoParent
	if parent != nil {
		if *parent < 0 {
			return fmt.Errorf("entry %q: negative parent position %d", e.LocalID, *parent)
		}
		e.Parent = *parent
	}

	e.Courts = make([]int, 0, len(fields)-3)
	for _, raw := range fields[3:] {
		var pos int
		if err := json.Unmarshal(raw, &pos); err != nil {
			return fmt.Errorf("entry %q court position: %w", e.LocalID, err)
		}
		e.Courts = append(e.Courts, pos)
	}
	return nil
}

// Court is one [courtID, courtName] tuple of the shared court table.
type Court struct {
	ID   string
	Name string
}

func (c *Court) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("court: %w", err)
	}
	if len(fields) < 2 {
		return fmt.Errorf("court: expected 2 fields, got %d", len(fields))
	}
	if err := json.Unmarshal(fields[0], &c.ID); err != nil {
		return fmt.Errorf("court id: %w", err)
	}
	if err := json.Unmarshal(fields[1], &c.Name); err != nil {
		return fmt.Errorf("court %q name: %w", c.ID, err)
	}
	return nil
}

// Descriptor is a parsed jurisdiction map file.
type Descriptor struct {
	Jurisdictions map[string][]Entry `json:"jurisdictions"`
	Courts        []Court            `json:"courts"`
}

type Options struct {
	// ValidateSchema runs the JSON schema check before typed decoding.
	ValidateSchema bool
}

func Parse(data []byte, opts Options) (*Descriptor, error) {
	text, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}

	if opts.ValidateSchema {
		var doc any
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse descriptor: %w", err)
		}
		if err := validateSchema(doc); err != nil {
			return nil, err
		}
	}

	var d Descriptor
	if err := json.Unmarshal(text, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	if d.Jurisdictions == nil {
		return nil, &StructureError{Position: -1, Reason: "missing jurisdictions"}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func Load(path string, opts Options) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return Parse(data, opts)
}

// Languages returns the descriptor's language tags with the default
// language first and the rest in ascending order.
func (d *Descriptor) Languages() []string {
	langs := make([]string, 0, len(d.Jurisdictions))
	hasDefault := false
	for lang := range d.Jurisdictions {
		if lang == DefaultLanguage {
			hasDefault = true
			continue
		}
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	if hasDefault {
		langs = append([]string{DefaultLanguage}, langs...)
	}
	return langs
}

// RowCount is the number of jurisdiction entries across all languages.
func (d *Descriptor) RowCount() int {
	n := 0
	for _, entries := range d.Jurisdictions {
		n += len(entries)
	}
	return n
}

// Validate enforces the ordering the importer relies on: every parent
// precedes its children within a language, and every court position
// resolves in the court table.
func (d *Descriptor) Validate() error {
	for _, lang := range d.Languages() {
		for i, e := range d.Jurisdictions[lang] {
			if e.LocalID == "" {
				return &StructureError{Language: lang, Position: i, Reason: "empty jurisdiction id"}
			}
			if !e.IsRoot() {
				if e.Parent >= i {
					return &StructureError{Language: lang, Position: i,
						Reason: fmt.Sprintf("parent position %d does not precede entry", e.Parent)}
				}
			}
			for _, c := range e.Courts {
				if c < 0 || c >= len(d.Courts) {
					return &StructureError{Language: lang, Position: i,
						Reason: fmt.Sprintf("court position %d out of range (%d courts)", c, len(d.Courts))}
				}
			}
		}
	}
	return nil
}

// StructureError reports a descriptor that decodes but cannot be imported.
type StructureError struct {
	Language string
	Position int
	Reason   string
}

func (e *StructureError) Error() string {
	if e.Position < 0 {
		return "invalid descriptor: " + e.Reason
	}
	return fmt.Sprintf("invalid descriptor: jurisdictions[%s][%d]: %s", e.Language, e.Position, e.Reason)
}
