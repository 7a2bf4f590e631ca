// Package schemafile reads taxonomy documents from disk.
package schemafile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/attrlens/backend/internal/domain"
)

//go:embed taxonomy.schema.json
var taxonomySchema []byte

const taxonomySchemaURL = "taxonomy.schema.json"

// Validator checks taxonomy documents against the embedded JSON Schema.
// It is safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded taxonomy schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(taxonomySchemaURL, bytes.NewReader(taxonomySchema)); err != nil {
		return nil, fmt.Errorf("failed to load taxonomy schema: %w", err)
	}
	schema, err := compiler.Compile(taxonomySchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile taxonomy schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a JSON document.
func (v *Validator) Validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", domain.ErrSchemaInvalid, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return nil
}

// Load reads the taxonomy at path (.json, .yaml or .yml), validates it and
// builds the Schema.
func Load(path string) (*domain.Schema, error) {
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	return domain.NewSchema(*def)
}

// LoadDefinition reads and validates the taxonomy at path without building
// a Schema.
func LoadDefinition(path string) (*domain.SchemaDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	format := strings.ToLower(filepath.Ext(path))
	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a taxonomy document. format is ".json", ".yaml" or ".yml";
// anything else is treated as JSON.
func Parse(data []byte, format string) (*domain.SchemaDefinition, error) {
	if format == ".yaml" || format == ".yml" {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(data); err != nil {
		return nil, err
	}

	var def domain.SchemaDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return &def, nil
}

// yamlToJSON re-encodes a YAML document so both formats share one
// validation path.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed YAML: %v", domain.ErrSchemaInvalid, err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: YAML is not representable as JSON: %v", domain.ErrSchemaInvalid, err)
	}
	return out, nil
}

// Write serializes def as indented JSON, or YAML when path ends in .yaml/.yml.
func Write(path string, def *domain.SchemaDefinition) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(def)
	default:
		data, err = json.MarshalIndent(def, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
