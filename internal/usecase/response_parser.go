package usecase

import (
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/attrlens/backend/internal/domain"
)

// ParseCompletion turns raw model text into a record. It locates the first
// '{' and the last '}' and decodes the span as one JSON object. Missing keys
// stay null, unknown keys are dropped, and no taxonomy checks are made.
func ParseCompletion(raw string) (*domain.Record, error) {
	span, ok := locateObject(raw)
	if !ok {
		return nil, domain.NewExtractionError("no JSON object delimiters", raw, nil)
	}

	fields, err := decodeObject(span)
	if err != nil {
		return nil, domain.NewExtractionError("malformed JSON object", raw, err)
	}

	return buildRecord(fields), nil
}

// locateObject returns the text between the first '{' and the last '}'.
func locateObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

func decodeObject(span string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

func buildRecord(fields map[string]interface{}) *domain.Record {
	record := &domain.Record{Features: []string{}}

	// Sorted so that an exact lower-case key deterministically wins over
	// differently cased duplicates.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assigned := make(map[domain.Field]bool, len(domain.Fields))
	for _, k := range keys {
		f, ok := domain.ParseField(k)
		if !ok {
			continue
		}
		if assigned[f] && k != string(f) {
			continue
		}
		assigned[f] = true

		if f == domain.FieldFeatures {
			record.Features = coerceFeatures(fields[k])
			continue
		}
		record.Set(f, coerceScalar(fields[k]))
	}
	return record
}

// coerceScalar maps JSON scalars to their text; objects and arrays become null.
func coerceScalar(v interface{}) *string {
	switch t := v.(type) {
	case string:
		return domain.StringPtr(t)
	case json.Number:
		return domain.StringPtr(t.String())
	case bool:
		return domain.StringPtr(strconv.FormatBool(t))
	}
	return nil
}

func coerceFeatures(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerceScalar(item); s != nil {
				out = append(out, *s)
			}
		}
		return out
	}
	return []string{}
}
