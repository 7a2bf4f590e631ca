package domain

import (
	"fmt"
	"strings"
)

// PropertyDefinition describes one attribute in a taxonomy document
type PropertyDefinition struct {
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Values      []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// SchemaDefinition is the serialized taxonomy, as produced by the schema
// builder or curated by hand.
type SchemaDefinition struct {
	Properties     map[string]PropertyDefinition `json:"properties" yaml:"properties"`
	InferenceRules []string                      `json:"inference_rules,omitempty" yaml:"inference_rules,omitempty"`
}

// CleanValue trims s and collapses inner whitespace runs to one space.
func CleanValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldValue is CleanValue plus lower-casing; it is the matching key.
func FoldValue(s string) string {
	return strings.ToLower(CleanValue(s))
}

// Candidate is one known value of an open field.
type Candidate struct {
	Key   string // folded form used for scoring
	Value string // canonical spelling returned on a match
}

// CandidateSet is an immutable, de-duplicated set of known values.
type CandidateSet struct {
	entries []Candidate
	byKey   map[string]string
}

func newCandidateSet(values []string, lower bool) CandidateSet {
	set := CandidateSet{byKey: make(map[string]string, len(values))}
	for _, v := range values {
		clean := CleanValue(v)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, dup := set.byKey[key]; dup {
			continue
		}
		if lower {
			clean = key
		}
		set.byKey[key] = clean
		set.entries = append(set.entries, Candidate{Key: key, Value: clean})
	}
	return set
}

// Len returns the number of candidates.
func (c CandidateSet) Len() int { return len(c.entries) }

// Entries returns the candidates in order of first appearance.
func (c CandidateSet) Entries() []Candidate {
	return append([]Candidate(nil), c.entries...)
}

// Values returns the canonical spellings in order of first appearance.
func (c CandidateSet) Values() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Value
	}
	return out
}

// Lookup returns the canonical spelling whose folded key equals FoldValue(v).
func (c CandidateSet) Lookup(v string) (string, bool) {
	canon, ok := c.byKey[FoldValue(v)]
	return canon, ok
}

// Schema is the process-wide taxonomy. It is read-only after NewSchema
// and safe for concurrent use.
type Schema struct {
	categories    CandidateSet
	subcategories CandidateSet
	brands        CandidateSet
	colors        CandidateSet
	materials     CandidateSet
	descriptions  map[Field]string
	rules         []string
}

// NewSchema validates def and builds the immutable Schema.
// Categories are lower-cased; open-field candidates keep their first
// spelling and are matched on the folded key.
func NewSchema(def SchemaDefinition) (*Schema, error) {
	props := make(map[Field]PropertyDefinition, len(def.Properties))
	for name, p := range def.Properties {
		f, ok := ParseField(name)
		if !ok {
			continue
		}
		props[f] = p
	}

	s := &Schema{
		categories:    newCandidateSet(props[FieldCategory].Values, true),
		subcategories: newCandidateSet(props[FieldSubcategory].Values, false),
		brands:        newCandidateSet(props[FieldBrand].Values, false),
		colors:        newCandidateSet(props[FieldColor].Values, false),
		materials:     newCandidateSet(props[FieldMaterial].Values, false),
		descriptions:  make(map[Field]string, len(props)),
	}
	if s.categories.Len() == 0 {
		return nil, fmt.Errorf("%w: category enum is empty", ErrSchemaInvalid)
	}

	for f, p := range props {
		if d := CleanValue(p.Description); d != "" {
			s.descriptions[f] = d
		}
	}
	for _, r := range def.InferenceRules {
		if r = CleanValue(r); r != "" {
			s.rules = append(s.rules, r)
		}
	}
	return s, nil
}

// Categories returns the closed category enum in order.
func (s *Schema) Categories() []string { return s.categories.Values() }

// Category returns the enum member equal to v after folding.
func (s *Schema) Category(v string) (string, bool) { return s.categories.Lookup(v) }

// Candidates returns the candidate set backing an open field.
// ok is false for fields that have none.
func (s *Schema) Candidates(f Field) (CandidateSet, bool) {
	switch f {
	case FieldSubcategory:
		return s.subcategories, true
	case FieldBrand:
		return s.brands, true
	case FieldColor:
		return s.colors, true
	case FieldMaterial:
		return s.materials, true
	}
	return CandidateSet{}, false
}

// Description returns the human description of a field, if one was given.
func (s *Schema) Description(f Field) string { return s.descriptions[f] }

// Rules returns the inference rules to include in prompts.
func (s *Schema) Rules() []string { return append([]string(nil), s.rules...) }

// Definition renders the schema back into its serialized shape.
func (s *Schema) Definition() SchemaDefinition {
	def := SchemaDefinition{
		Properties:     make(map[string]PropertyDefinition, len(Fields)),
		InferenceRules: s.Rules(),
	}
	for _, f := range Fields {
		p := PropertyDefinition{Type: "string", Description: s.descriptions[f]}
		switch f {
		case FieldCategory:
			p.Type = "enum"
			p.Values = s.categories.Values()
		case FieldFeatures:
			p.Type = "array"
		default:
			if set, ok := s.Candidates(f); ok {
				p.Type = "enum"
				p.Values = set.Values()
			}
		}
		def.Properties[string(f)] = p
	}
	return def
}
