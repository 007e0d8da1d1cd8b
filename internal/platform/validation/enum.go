package validation

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Fold normalizes s for caseless comparison.
func Fold(s string) string {
	return cases.Fold().String(Text(s))
}

// Synonyms maps folded input spellings to a canonical value.
type Synonyms[T ~string] map[string]T

// Match resolves value against the table. Keys must already be folded.
func (s Synonyms[T]) Match(field, value string) (T, error) {
	if v, ok := s[Fold(value)]; ok {
		return v, nil
	}
	var zero T
	return zero, Invalid(field, value, "must be one of "+s.allowed())
}

func (s Synonyms[T]) allowed() string {
	seen := make(map[T]bool, len(s))
	var out []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, string(v))
		}
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}
