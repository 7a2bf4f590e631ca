package domain

// Outcome classifies one field comparison against ground truth
type Outcome string

const (
	OutcomeExact Outcome = "exact_match"
	OutcomeFuzzy Outcome = "fuzzy_match"
	OutcomeMiss  Outcome = "miss"
)

// Sample pairs a description with its expected record.
type Sample struct {
	Description string
	Expected    *Record
}

// FieldAccuracy aggregates outcomes for one field over a run.
// Percentages are 0-100; Accuracy counts exact and fuzzy matches.
type FieldAccuracy struct {
	Field    Field   `json:"field"`
	Exact    int     `json:"exact"`
	Fuzzy    int     `json:"fuzzy"`
	Miss     int     `json:"miss"`
	ExactPct float64 `json:"exact_pct"`
	FuzzyPct float64 `json:"fuzzy_pct"`
	MissPct  float64 `json:"miss_pct"`
	Accuracy float64 `json:"accuracy"`
}

// SampleResult is the outcome of a single pipeline run during evaluation.
type SampleResult struct {
	Index     int               `json:"index"`
	Predicted *Record           `json:"predicted,omitempty"`
	Outcomes  map[Field]Outcome `json:"outcomes"`
	Error     string            `json:"error,omitempty"`
}

// AccuracyReport is the read-only summary of an evaluation run.
type AccuracyReport struct {
	SampleSize int             `json:"sample_size"`
	Failed     int             `json:"failed"`
	Threshold  float64         `json:"threshold"`
	Fields     []FieldAccuracy `json:"fields"`
	Overall    float64         `json:"overall"`
	Samples    []SampleResult  `json:"samples"`
}

// Field returns the aggregate for f.
func (r *AccuracyReport) Field(f Field) (FieldAccuracy, bool) {
	for _, fa := range r.Fields {
		if fa.Field == f {
			return fa, true
		}
	}
	return FieldAccuracy{}, false
}
