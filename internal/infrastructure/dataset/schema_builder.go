package dataset

import (
	"regexp"
	"sort"
	"strings"

	"github.com/attrlens/backend/internal/domain"
)

// BuildOptions controls taxonomy generation
type BuildOptions struct {
	// MinCategoryCount is the number of rows a root category needs to be kept.
	MinCategoryCount int
	// TopN caps the subcategory, brand, colour and material sets.
	TopN int
}

// DefaultBuildOptions mirrors the thresholds the dataset was tuned with.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{MinCategoryCount: 5, TopN: 999}
}

var colorTokens = toSet(
	"beige", "black", "blue", "brown", "burgundy", "camel", "charcoal", "cobalt", "copper",
	"coral", "cream", "crimson", "cyan", "dark", "gold", "gray", "green", "grey", "indigo",
	"ivory", "khaki", "lavender", "light", "lilac", "magenta", "maroon", "matte", "metallic",
	"mint", "multicolor", "mustard", "navy", "nude", "olive", "orange", "peach", "pink",
	"plum", "purple", "red", "rose", "royal", "ruby", "rust", "sage", "salmon", "sand",
	"silver", "sky", "tan", "taupe", "teal", "turquoise", "violet", "white", "yellow",
	"amber", "aqua", "azure", "bronze", "chocolate", "coffee", "emerald", "fuchsia",
	"garnet", "hazel", "jade", "lime", "mocha", "pearl", "platinum", "sapphire", "scarlet",
	"sienna", "slate", "smoke", "steel", "titanium", "topaz", "vanilla", "zinc", "champagne",
	"clear", "crystal", "transparent",
)

var knownMaterials = []string{
	"cotton", "polyester", "wool", "leather", "silk", "nylon", "spandex",
	"denim", "linen", "viscose", "rayon", "acrylic", "cashmere", "suede",
	"metal", "plastic", "wood", "glass", "ceramic", "rubber", "latex", "silicone",
	"canvas", "chiffon", "velvet", "fleece", "jersey", "lace", "satin", "bamboo",
}

var sizeValues = []string{"xs", "s", "m", "l", "xl", "xxl", "xxxl"}

var defaultRules = []string{
	"For 'dimensions' and 'weight', extract the exact text if found.",
	"For 'features', extract a list of 3-5 main features.",
	"Map 'big' or 'large' to 'l', 'small' to 's'.",
}

var (
	colorSplit = regexp.MustCompile(`[\s/\-,&]+`)
	hasDigit   = regexp.MustCompile(`\d`)
)

// BuildSchema derives a taxonomy from dataset rows:
//   - category: root of the categories list (or root_bs_category), kept
//     when seen at least MinCategoryCount times
//   - subcategory: leaf of the categories list
//   - brand: most frequent brands
//   - color: variation names reduced to known colour words
//   - material: known material words found in the product text
//
// Every candidate list is sorted.
func BuildSchema(rows []Row, opts BuildOptions) domain.SchemaDefinition {
	if opts.MinCategoryCount <= 0 {
		opts.MinCategoryCount = 1
	}

	categories := newCounter()
	subcategories := newCounter()
	brands := newCounter()
	colors := newCounter()
	materials := newCounter()

	for _, row := range rows {
		if cats := nonEmpty(ParseStrings(row.Categories)); len(cats) > 0 {
			categories.add(domain.FoldValue(cats[0]))
			if len(cats) > 1 {
				subcategories.add(domain.FoldValue(cats[len(cats)-1]))
			}
		} else if root := domain.FoldValue(row.RootBSCategory); root != "" {
			categories.add(root)
		}

		if b := domain.CleanValue(row.Brand); b != "" {
			brands.add(b)
		}

		for _, name := range variationNames(row.Variations) {
			if c := colorFromVariation(name); c != "" {
				colors.add(c)
			}
		}

		text := strings.ToLower(row.Description + " " + row.Features + " " + row.ProductDetails)
		for _, m := range knownMaterials {
			if strings.Contains(text, m) {
				materials.add(m)
			}
		}
	}

	return domain.SchemaDefinition{
		Properties: map[string]domain.PropertyDefinition{
			"category": {
				Type:        "enum",
				Description: "The main category of the product",
				Values:      categories.atLeast(opts.MinCategoryCount),
			},
			"subcategory": {Type: "enum", Description: "The specific subcategory", Values: subcategories.top(opts.TopN)},
			"brand":       {Type: "enum", Description: "The brand manufacturer", Values: brands.top(opts.TopN)},
			"color":       {Type: "enum", Description: "Primary color(s)", Values: colors.top(opts.TopN)},
			"material":    {Type: "enum", Description: "Primary material(s)", Values: materials.top(opts.TopN)},
			"size":        {Type: "enum", Description: "Size if applicable", Values: sizeValues},
			"dimensions":  {Type: "string", Description: "Product dimensions (e.g., '10x10x5 inches')"},
			"weight":      {Type: "string", Description: "Product weight (e.g., '2 lbs')"},
			"features":    {Type: "array", Description: "List of key features or highlights"},
		},
		InferenceRules: append([]string(nil), defaultRules...),
	}
}

// colorFromVariation keeps only the colour words of a variation name:
// "Dark Blue - Large" becomes "dark blue". Names with digits are skipped.
func colorFromVariation(name string) string {
	clean := strings.ToLower(strings.TrimSpace(name))
	if clean == "" || hasDigit.MatchString(clean) {
		return ""
	}
	var kept []string
	for _, tok := range colorSplit.Split(clean, -1) {
		if colorTokens[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

type counter struct {
	counts map[string]int
}

func newCounter() *counter { return &counter{counts: make(map[string]int)} }

func (c *counter) add(v string) { c.counts[v]++ }

// top returns the n most frequent values, sorted alphabetically.
// Frequency ties are broken alphabetically.
func (c *counter) top(n int) []string {
	values := make([]string, 0, len(c.counts))
	for v := range c.counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if c.counts[values[i]] != c.counts[values[j]] {
			return c.counts[values[i]] > c.counts[values[j]]
		}
		return values[i] < values[j]
	})
	if n > 0 && len(values) > n {
		values = values[:n]
	}
	sort.Strings(values)
	return values
}

// atLeast returns every value seen at least threshold times, sorted.
func (c *counter) atLeast(threshold int) []string {
	var values []string
	for v, n := range c.counts {
		if n >= threshold {
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values
}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
