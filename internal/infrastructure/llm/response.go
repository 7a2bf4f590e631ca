package llm

import (
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ResponseText returns the content of the first choice that carries text.
func ResponseText(resp *llms.ContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, choice := range resp.Choices {
		if choice != nil && strings.TrimSpace(choice.Content) != "" {
			return choice.Content
		}
	}
	return ""
}
