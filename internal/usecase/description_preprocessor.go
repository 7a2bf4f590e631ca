package usecase

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/attrlens/backend/internal/domain"
)

// DefaultMaxDescriptionLength caps description length in runes
const DefaultMaxDescriptionLength = 1000

// truncationSuffix marks a description that was cut short
const truncationSuffix = "..."

// htmlTagPattern detects markup worth handing to the HTML parser
var htmlTagPattern = regexp.MustCompile(`<\s*/?\s*[a-zA-Z][^>]*>`)

// blockElements get a separating space so adjacent blocks do not run together
const blockElements = "br, p, li, div, tr, td, th, h1, h2, h3, h4, h5, h6"

// DescriptionPreprocessor cleans raw descriptions before prompting
type DescriptionPreprocessor struct {
	maxLength int
}

// NewDescriptionPreprocessor creates a preprocessor; maxLength <= 0 uses the default.
func NewDescriptionPreprocessor(maxLength int) *DescriptionPreprocessor {
	if maxLength <= 0 {
		maxLength = DefaultMaxDescriptionLength
	}
	return &DescriptionPreprocessor{maxLength: maxLength}
}

// Prepare strips markup, collapses whitespace and truncates at a word
// boundary. An empty result is ErrInvalidRequest.
func (p *DescriptionPreprocessor) Prepare(description string) (string, error) {
	text := description
	if htmlTagPattern.MatchString(text) {
		stripped, err := stripHTML(text)
		if err != nil {
			return "", fmt.Errorf("%w: unreadable markup: %v", domain.ErrInvalidRequest, err)
		}
		text = stripped
	} else {
		text = html.UnescapeString(text)
	}

	text = domain.CleanValue(text)
	if text == "" {
		return "", fmt.Errorf("%w: description is empty", domain.ErrInvalidRequest)
	}
	return p.truncate(text), nil
}

func (p *DescriptionPreprocessor) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= p.maxLength {
		return text
	}

	cut := string(runes[:p.maxLength])
	// Prefer a word boundary unless it throws away more than half the text
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > len(cut)/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut) + truncationSuffix
}

func stripHTML(s string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	doc.Find(blockElements).Each(func(_ int, sel *goquery.Selection) {
		sel.AfterHtml(" ")
	})
	return doc.Text(), nil
}
