package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind names one of the upstream report kinds.
type Kind string

const (
	KindCatchCount     Kind = "catch_count"
	KindFieldCondition Kind = "field_condition"
	KindFishingReport  Kind = "fishing_report"
)

// Post is one upstream item as decoded from the GraphQL response. Attributes
// are kept loosely typed because the API mixes numbers, numeric strings,
// lists, and nulls for the same field across facilities and days.
type Post map[string]any

// FetchResult is what the fetch collaborator returns for one kind and date:
// the response body exactly as received, plus the decoded items.
type FetchResult struct {
	Raw   []byte
	Posts []Post
}

// Text returns the attribute as a string. Numbers are rendered in their
// shortest decimal form; lists are joined with a single space; absent and
// null attributes yield "".
func (p Post) Text(key string) string {
	return textOf(p[key])
}

// OptionalText is Text for attributes that must stay null when absent.
func (p Post) OptionalText(key string) *string {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	s := textOf(v)
	return &s
}

// Blank reports whether the attribute is missing, null, an empty string, or
// an empty list. Whitespace-only strings are not blank.
func (p Post) Blank(key string) bool {
	switch v := p[key].(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

// UpdatedAt returns the post's revision timestamp, "" when absent.
func (p Post) UpdatedAt() string {
	s, _ := p["updatedAt"].(string)
	return s
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, " ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := textOf(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
