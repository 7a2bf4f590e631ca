package domain

import (
	"encoding/json"
	"strings"
)

// Field names an attribute of a product record
type Field string

const (
	FieldCategory    Field = "category"
	FieldSubcategory Field = "subcategory"
	FieldBrand       Field = "brand"
	FieldColor       Field = "color"
	FieldMaterial    Field = "material"
	FieldSize        Field = "size"
	FieldDimensions  Field = "dimensions"
	FieldWeight      Field = "weight"
	FieldFeatures    Field = "features"
)

// Fields lists every record field in output order.
var Fields = []Field{
	FieldCategory,
	FieldSubcategory,
	FieldBrand,
	FieldColor,
	FieldMaterial,
	FieldSize,
	FieldDimensions,
	FieldWeight,
	FieldFeatures,
}

// ParseField returns the Field named s, case-insensitively.
func ParseField(s string) (Field, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Record is the structured form of a product description. It is used for
// parser output, normalized output and ground truth alike. A nil string
// field means the attribute is absent.
type Record struct {
	Category    *string  `json:"category"`
	Subcategory *string  `json:"subcategory"`
	Brand       *string  `json:"brand"`
	Color       *string  `json:"color"`
	Material    *string  `json:"material"`
	Size        *string  `json:"size"`
	Dimensions  *string  `json:"dimensions"`
	Weight      *string  `json:"weight"`
	Features    []string `json:"features"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Get returns the value of a scalar field, or nil when absent or when f is FieldFeatures.
func (r *Record) Get(f Field) *string {
	if p := r.slot(f); p != nil {
		return *p
	}
	return nil
}

// Set assigns a scalar field. It is a no-op for FieldFeatures.
func (r *Record) Set(f Field, v *string) {
	if p := r.slot(f); p != nil {
		*p = v
	}
}

func (r *Record) slot(f Field) **string {
	switch f {
	case FieldCategory:
		return &r.Category
	case FieldSubcategory:
		return &r.Subcategory
	case FieldBrand:
		return &r.Brand
	case FieldColor:
		return &r.Color
	case FieldMaterial:
		return &r.Material
	case FieldSize:
		return &r.Size
	case FieldDimensions:
		return &r.Dimensions
	case FieldWeight:
		return &r.Weight
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := &Record{}
	for _, f := range Fields {
		if v := r.Get(f); v != nil {
			out.Set(f, StringPtr(*v))
		}
	}
	out.Features = append([]string{}, r.Features...)
	return out
}

// MarshalJSON always emits all nine keys; features is never null.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	p := plain(r)
	if p.Features == nil {
		p.Features = []string{}
	}
	return json.Marshal(p)
}
