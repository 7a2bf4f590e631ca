package usecase

import (
	"fmt"
	"strings"

	"github.com/tyler-sommer/stick"

	"github.com/attrlens/backend/internal/domain"
)

// DefaultPromptTemplate is the built-in extraction prompt. It is a stick
// (Twig) template; every variable is pre-rendered text.
const DefaultPromptTemplate = `You are a helpful assistant that parses product descriptions into a JSON structure.
You MUST output ONLY a single valid JSON object, with no commentary before or after it.
You must extract the following properties from the input text.

Fields to Extract:
{{ fields }}

Valid Categories (choose exactly one for 'category'):
{{ categories }}

Rules:
1. Return one JSON object only, with exactly these keys: {{ keys }}.
2. For 'category', you MUST choose the best fit from the 'Valid Categories' list above. Never invent a new category.
3. For ALL OTHER fields, extract the text found in the description. Do not guess.
4. If an attribute is not mentioned in the description, return null for it (an empty list for 'features').
5. 'features' should be a list of short strings highlighting key product features.
{{ rules }}
Example Input: "Bright, big orange and black fedora made with quality polyester. Brand: HatMaster. Dimensions: 10x10x5 inches. Weight: 0.5 lbs. Features: Waterproof, sun protection."
Example Output:
{"category": "clothing, shoes & jewelry", "subcategory": "hats", "brand": "HatMaster", "color": "orange", "material": "polyester", "size": "xl", "dimensions": "10x10x5 inches", "weight": "0.5 lbs", "features": ["Waterproof", "sun protection"]}

Input:
{{ description }}
`

// PromptAssembler renders the hybrid extraction prompt: a closed enum for
// category and open extraction for every other field.
type PromptAssembler struct {
	env      *stick.Env
	template string
}

// NewPromptAssembler creates an assembler for template, or for
// DefaultPromptTemplate when template is empty.
func NewPromptAssembler(template string) *PromptAssembler {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	return &PromptAssembler{
		env:      stick.New(nil),
		template: template,
	}
}

// Assemble builds the prompt for one description. The output depends only
// on description and schema.
func (p *PromptAssembler) Assemble(description string, schema *domain.Schema) (string, error) {
	keys := make([]string, len(domain.Fields))
	for i, f := range domain.Fields {
		keys[i] = string(f)
	}

	ctx := map[string]stick.Value{
		"fields":      fieldLines(schema),
		"categories":  bulletList(schema.Categories()),
		"keys":        strings.Join(keys, ", "),
		"rules":       ruleLines(schema.Rules()),
		"description": description,
	}

	var out strings.Builder
	if err := p.env.Execute(p.template, &out, ctx); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out.String(), nil
}

func fieldLines(schema *domain.Schema) string {
	lines := make([]string, 0, len(domain.Fields))
	for _, f := range domain.Fields {
		var kind string
		switch f {
		case domain.FieldCategory:
			kind = "String (choose from the list below)"
		case domain.FieldFeatures:
			kind = "List of strings"
		default:
			if _, ok := schema.Candidates(f); ok {
				kind = "String or null (extract from text)"
			} else {
				kind = "String or null"
			}
		}

		line := fmt.Sprintf("- %s: %s", f, kind)
		if d := schema.Description(f); d != "" {
			line += " - " + d
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func bulletList(values []string) string {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = "- " + v
	}
	return strings.Join(lines, "\n")
}

func ruleLines(rules []string) string {
	if len(rules) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nInference Rules:\n")
	for _, r := range rules {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}
