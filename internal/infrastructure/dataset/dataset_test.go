package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `title,brand,description,categories,variations,product_dimensions,item_weight,features,root_bs_category,extra
PowerMax Extension Cord,PowerMax,"Heavy duty 10ft orange cord, rubber jacket","[""Tools & Home Improvement"", ""Electrical"", ""Extension Cords""]","[{""name"": ""Orange"", ""asin"": ""B01""}, {""name"": ""Black"", ""asin"": ""B02""}]",10 x 2 x 2 inches,2 pounds,"[""Heavy duty"", ""Outdoor rated""]",,x
Fedora,HatMaster,Polyester fedora,"['Clothing, Shoes & Jewelry', 'Hats']","[{'name': 'Dark Blue - Large'}, {'name': 'Size 7'}]",,,"['Waterproof', 'UV']",,y
No Categories,Acme,Plain widget,null,,,,,Home & Kitchen,z
`

func readSample(t *testing.T) []Row {
	t.Helper()
	var rows []Row
	err := ReadCSV(strings.NewReader(sampleCSV), func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	return rows
}

func TestReadCSV(t *testing.T) {
	rows := readSample(t)

	assert.Equal(t, "PowerMax Extension Cord", rows[0].Title)
	assert.Equal(t, "PowerMax", rows[0].Brand)
	assert.Equal(t, "10 x 2 x 2 inches", rows[0].ProductDimensions)
	assert.Equal(t, "2 pounds", rows[0].ItemWeight)
	assert.Equal(t, "Home & Kitchen", rows[2].RootBSCategory)
}

func TestReadCSV_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadCSV(strings.NewReader(sampleCSV), func(Row) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadCSV_Empty(t *testing.T) {
	err := ReadCSV(strings.NewReader(""), func(Row) error {
		t.Fatal("callback should not run")
		return nil
	})
	assert.NoError(t, err)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []interface{}
	}{
		{"empty", "", nil},
		{"null", "null", nil},
		{"json", `["a", "b"]`, []interface{}{"a", "b"}},
		{"python quotes", `['a', 'b']`, []interface{}{"a", "b"}},
		{"python apostrophe inside double quotes", `["kid's hat", 'x']`, []interface{}{"kid's hat", "x"}},
		{"python escaped quote", `['kid\'s hat']`, []interface{}{"kid's hat"}},
		{"python keywords", `[None, True, False]`, []interface{}{nil, true, false}},
		{"dicts", `[{'name': 'Orange'}]`, []interface{}{map[string]interface{}{"name": "Orange"}}},
		{"not a list", `{"a": 1}`, nil},
		{"garbage", `['unterminated`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseList(tt.raw))
		})
	}
}

func TestGroundTruth(t *testing.T) {
	rows := readSample(t)

	t.Run("full row", func(t *testing.T) {
		r := GroundTruth(rows[0])
		assert.Equal(t, "tools & home improvement", *r.Category)
		assert.Equal(t, "extension cords", *r.Subcategory)
		assert.Equal(t, "PowerMax", *r.Brand)
		assert.Equal(t, "Orange", *r.Color)
		assert.Equal(t, "10 x 2 x 2 inches", *r.Dimensions)
		assert.Equal(t, "2 pounds", *r.Weight)
		assert.Equal(t, []string{"Heavy duty", "Outdoor rated"}, r.Features)
		assert.Nil(t, r.Size)
		assert.Nil(t, r.Material)
	})

	t.Run("python literal row", func(t *testing.T) {
		r := GroundTruth(rows[1])
		assert.Equal(t, "clothing, shoes & jewelry", *r.Category)
		assert.Equal(t, "hats", *r.Subcategory)
		assert.Equal(t, "Dark Blue - Large", *r.Color)
		assert.Nil(t, r.Dimensions)
	})

	t.Run("root category fallback", func(t *testing.T) {
		r := GroundTruth(rows[2])
		assert.Equal(t, "home & kitchen", *r.Category)
		assert.Equal(t, "home & kitchen", *r.Subcategory)
		assert.Nil(t, r.Color)
		assert.Empty(t, r.Features)
	})

	t.Run("single category uses it as subcategory", func(t *testing.T) {
		r := GroundTruth(Row{Categories: `["Electronics"]`})
		assert.Equal(t, "electronics", *r.Subcategory)
	})
}

func TestToSample(t *testing.T) {
	rows := readSample(t)

	s, ok := ToSample(rows[1], 1000)
	require.True(t, ok)
	assert.Equal(t, "Fedora Polyester fedora", s.Description)
	assert.NotNil(t, s.Expected)

	s, ok = ToSample(rows[0], 10)
	require.True(t, ok)
	assert.Equal(t, "PowerMax E...", s.Description)

	_, ok = ToSample(Row{Title: "  "}, 100)
	assert.False(t, ok)
}

func TestSample(t *testing.T) {
	rows := make([]Row, 20)
	for i := range rows {
		rows[i] = Row{Title: string(rune('a' + i)), Categories: `["x"]`}
	}
	rows = append(rows, Row{Title: "skip", Categories: "null"}, Row{Title: "skip2"})

	t.Run("filters rows without categories", func(t *testing.T) {
		got := Sample(rows, 100, 1)
		assert.Len(t, got, 20)
		for _, r := range got {
			assert.NotContains(t, r.Title, "skip")
		}
	})

	t.Run("is deterministic for a seed", func(t *testing.T) {
		a := Sample(rows, 5, 42)
		b := Sample(rows, 5, 42)
		assert.Len(t, a, 5)
		assert.Equal(t, a, b)
	})
}

func TestBuildSchema(t *testing.T) {
	rows := readSample(t)

	def := BuildSchema(rows, BuildOptions{MinCategoryCount: 1, TopN: 10})

	assert.Equal(t, []string{"clothing, shoes & jewelry", "home & kitchen", "tools & home improvement"}, def.Properties["category"].Values)
	assert.Equal(t, []string{"extension cords", "hats"}, def.Properties["subcategory"].Values)
	assert.Equal(t, []string{"Acme", "HatMaster", "PowerMax"}, def.Properties["brand"].Values)
	assert.Equal(t, []string{"black", "dark blue", "orange"}, def.Properties["color"].Values)
	assert.Equal(t, []string{"polyester", "rubber"}, def.Properties["material"].Values)
	assert.Equal(t, "array", def.Properties["features"].Type)
	assert.NotEmpty(t, def.InferenceRules)

	t.Run("drops rare categories", func(t *testing.T) {
		def := BuildSchema(rows, DefaultBuildOptions())
		assert.Empty(t, def.Properties["category"].Values)
	})

	t.Run("caps candidate sets by frequency", func(t *testing.T) {
		many := append([]Row{}, rows...)
		many = append(many, Row{Brand: "PowerMax"}, Row{Brand: "HatMaster"}, Row{Brand: "PowerMax"})
		def := BuildSchema(many, BuildOptions{MinCategoryCount: 1, TopN: 1})
		assert.Equal(t, []string{"PowerMax"}, def.Properties["brand"].Values)
	})
}

func TestColorFromVariation(t *testing.T) {
	tests := map[string]string{
		"Dark Blue - Large": "dark blue",
		"Black/White":       "black white",
		"Bluetooth":         "",
		"Size 7":            "",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, colorFromVariation(in), in)
	}
}
