package dataset

import (
	"math/rand"
	"strings"

	"github.com/attrlens/backend/internal/domain"
)

// Sample returns up to n rows that carry category information, chosen
// deterministically from seed. When fewer rows qualify, all of them are
// returned in dataset order.
func Sample(rows []Row, n int, seed int64) []Row {
	valid := make([]Row, 0, len(rows))
	for _, r := range rows {
		if c := strings.TrimSpace(r.Categories); c != "" && c != "null" {
			valid = append(valid, r)
		}
	}
	if n <= 0 || len(valid) <= n {
		return valid
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]Row, n)
	for i, idx := range rng.Perm(len(valid))[:n] {
		out[i] = valid[idx]
	}
	return out
}

// ToSample builds the evaluation input and expected record for a row.
// ok is false when the row has no usable description text.
func ToSample(row Row, maxLen int) (domain.Sample, bool) {
	description := strings.TrimSpace(row.Title + " " + row.Description)
	if description == "" {
		return domain.Sample{}, false
	}
	if runes := []rune(description); maxLen > 0 && len(runes) > maxLen {
		description = string(runes[:maxLen]) + "..."
	}
	return domain.Sample{Description: description, Expected: GroundTruth(row)}, true
}

// GroundTruth derives the expected record from the source columns.
// Size and material have no reliable column and stay null.
func GroundTruth(row Row) *domain.Record {
	r := &domain.Record{Features: []string{}}

	if cats := nonEmpty(ParseStrings(row.Categories)); len(cats) > 0 {
		r.Category = domain.StringPtr(domain.FoldValue(cats[0]))
		r.Subcategory = domain.StringPtr(domain.FoldValue(cats[len(cats)-1]))
	} else if root := domain.FoldValue(row.RootBSCategory); root != "" {
		r.Category = domain.StringPtr(root)
		r.Subcategory = domain.StringPtr(root)
	}

	r.Brand = optional(row.Brand)
	r.Color = firstVariationName(row.Variations)
	r.Dimensions = optional(row.ProductDimensions)
	r.Weight = optional(row.ItemWeight)
	r.Features = nonEmpty(ParseStrings(row.Features))
	return r
}

// variationNames lists the non-empty "name" entries of the variations column.
func variationNames(raw string) []string {
	var names []string
	for _, item := range ParseList(raw) {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := m["name"].(string); ok && strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	return names
}

func firstVariationName(raw string) *string {
	names := variationNames(raw)
	if len(names) == 0 {
		return nil
	}
	return domain.StringPtr(domain.CleanValue(names[0]))
}

func optional(s string) *string {
	s = domain.CleanValue(s)
	if s == "" || s == "null" {
		return nil
	}
	return &s
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = domain.CleanValue(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
