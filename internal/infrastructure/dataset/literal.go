package dataset

import (
	"encoding/json"
	"strings"
)

// ParseList decodes a list-valued column. The dataset mixes JSON with
// Python literal syntax (single quotes, None/True/False); both are
// accepted. Anything that is not a list yields nil.
func ParseList(raw string) []interface{} {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	var out []interface{}
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out
	}
	if converted, ok := pythonToJSON(raw); ok {
		if err := json.Unmarshal([]byte(converted), &out); err == nil {
			return out
		}
	}
	return nil
}

// ParseStrings is ParseList keeping only string elements.
func ParseStrings(raw string) []string {
	items := ParseList(raw)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// pythonToJSON rewrites a Python literal into JSON: single-quoted strings
// become double-quoted and None/True/False become null/true/false.
func pythonToJSON(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' || c == '"':
			end, ok := writeQuoted(&b, runes, i)
			if !ok {
				return "", false
			}
			i = end
		case isIdentStart(c):
			j := i
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			switch word := string(runes[i:j]); word {
			case "None":
				b.WriteString("null")
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			default:
				b.WriteString(word)
			}
			i = j - 1
		default:
			b.WriteRune(c)
		}
	}
	return b.String(), true
}

// writeQuoted copies the string literal opening at runes[start] as a JSON
// string and returns the index of its closing quote.
func writeQuoted(b *strings.Builder, runes []rune, start int) (int, bool) {
	quote := runes[start]
	b.WriteByte('"')
	for i := start + 1; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\\' && i+1 < len(runes):
			next := runes[i+1]
			if next == '\'' {
				b.WriteRune('\'')
			} else {
				b.WriteRune('\\')
				b.WriteRune(next)
			}
			i++
		case c == quote:
			b.WriteByte('"')
			return i, true
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(c)
		}
	}
	return 0, false
}

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
