package usecase

import (
	"fmt"
	"strings"

	"github.com/attrlens/backend/internal/domain"
)

// DefaultThreshold is the minimum similarity for snapping a value to a candidate
const DefaultThreshold = 0.80

// MatchConfig holds configuration for the normalizer
type MatchConfig struct {
	Threshold float64
	Metric    string
}

// Normalizer reconciles parsed records against the schema taxonomy.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	threshold float64
	metric    Metric
}

// NewNormalizer creates a normalizer with the given configuration
func NewNormalizer(config MatchConfig) (*Normalizer, error) {
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if threshold > 1 {
		return nil, fmt.Errorf("threshold must be at most 1, got %v", threshold)
	}

	metric, err := MetricByName(config.Metric)
	if err != nil {
		return nil, err
	}

	return &Normalizer{threshold: threshold, metric: metric}, nil
}

// Threshold returns the acceptance threshold.
func (n *Normalizer) Threshold() float64 { return n.threshold }

// MetricName returns the name of the similarity metric in use.
func (n *Normalizer) MetricName() string { return n.metric.Name }

// Similarity scores a against b with the configured metric.
func (n *Normalizer) Similarity(a, b string) float64 { return n.metric.Score(a, b) }

// Match is the best candidate found for a value
type Match struct {
	Value    string  // canonical candidate, empty when nothing was scored
	Score    float64 // 0-1
	Accepted bool    // Score >= threshold
}

// BestMatch scores the folded value against every candidate and returns the
// highest scorer. Ties go to the lexicographically smallest candidate.
func (n *Normalizer) BestMatch(value string, set domain.CandidateSet) Match {
	key := domain.FoldValue(value)
	if key == "" || set.Len() == 0 {
		return Match{}
	}
	if canon, ok := set.Lookup(key); ok {
		return Match{Value: canon, Score: 1, Accepted: true}
	}

	keyLen := len([]rune(key))
	best := Match{Score: -1}
	for _, c := range set.Entries() {
		bound := n.metric.Bound(keyLen, len([]rune(c.Key)))
		if bound < n.threshold || bound < best.Score {
			continue
		}

		score := n.metric.Score(key, c.Key)
		if score > best.Score || (score == best.Score && c.Value < best.Value) {
			best = Match{Value: c.Value, Score: score}
		}
	}

	if best.Score < 0 {
		return Match{}
	}
	best.Accepted = best.Score >= n.threshold
	return best
}

// Normalize returns the normalized form of record. The input is not modified.
//   - category must be an enum member, otherwise it becomes null
//   - subcategory, brand, color and material snap to a candidate when the
//     best score reaches the threshold and are kept verbatim otherwise
//   - size, dimensions and weight are whitespace-normalized
//   - features are trimmed and de-duplicated case-insensitively
func (n *Normalizer) Normalize(record *domain.Record, schema *domain.Schema) *domain.Record {
	out := &domain.Record{Features: []string{}}
	if record == nil {
		return out
	}

	if v := record.Category; v != nil {
		if canon, ok := schema.Category(*v); ok {
			out.Category = domain.StringPtr(canon)
		}
	}

	for _, f := range domain.Fields {
		switch f {
		case domain.FieldCategory, domain.FieldFeatures:
			continue
		}
		v := record.Get(f)
		if v == nil || domain.CleanValue(*v) == "" {
			continue
		}

		set, ok := schema.Candidates(f)
		if !ok {
			out.Set(f, domain.StringPtr(domain.CleanValue(*v)))
			continue
		}

		if m := n.BestMatch(*v, set); m.Accepted {
			out.Set(f, domain.StringPtr(m.Value))
		} else {
			out.Set(f, domain.StringPtr(*v))
		}
	}

	out.Features = normalizeFeatures(record.Features)
	return out
}

func normalizeFeatures(features []string) []string {
	out := make([]string, 0, len(features))
	seen := make(map[string]bool, len(features))
	for _, feat := range features {
		clean := domain.CleanValue(feat)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, clean)
	}
	return out
}
