package matcher

import (
	"strings"
	"unicode"
)

// admxPrefixes are leading verbs ADMX display names use that Settings
// Catalog names often drop.
var admxPrefixes = []string{
	"configure ",
	"enable ",
	"disable ",
	"allow ",
	"turn on ",
	"turn off ",
	"specify ",
	"set ",
	"prevent ",
	"do not ",
	"require ",
}

// stopWords are generic words that say nothing about which setting is meant.
var stopWords = map[string]bool{
	"configure": true, "enable": true, "disable": true, "allow": true,
	"turn": true, "specify": true, "prevent": true, "require": true,
	"setting": true, "settings": true, "policy": true, "policies": true,
	"with": true, "from": true, "that": true, "this": true, "when": true,
	"will": true, "than": true, "into": true, "only": true, "used": true,
}

var quoteReplacer = strings.NewReplacer(`"`, "", "“", "", "”", "")

// cleanName strips quotes and collapses whitespace.
func cleanName(s string) string {
	return strings.Join(strings.Fields(quoteReplacer.Replace(s)), " ")
}

// normalizeName is cleanName lower-cased, for comparisons.
func normalizeName(s string) string {
	return strings.ToLower(cleanName(s))
}

// StripPrefix removes one leading ADMX verb phrase, case-insensitively.
func StripPrefix(name string) string {
	lower := strings.ToLower(name)
	for _, p := range admxPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(name[len(p):])
		}
	}
	return name
}

// lastCategorySegment returns the last element of a category path such as
// `\Windows Components\Data Collection and Preview Builds`.
func lastCategorySegment(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '\\' || r == '/' })
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

// Queries returns the ordered, de-duplicated search queries for a setting
// display name and its category path. The caller passes the setting's own
// display name when there is no definition metadata.
func Queries(name, categoryPath string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(q string) {
		q = cleanName(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, q)
	}

	name = cleanName(name)
	add(name)

	base := name
	if stripped := StripPrefix(name); stripped != name && len(stripped) > 3 {
		add(stripped)
		base = stripped
	}

	if seg := lastCategorySegment(categoryPath); seg != "" {
		if !strings.Contains(strings.ToLower(name), strings.ToLower(seg)) {
			add(seg + " " + base)
		}
	}
	return out
}

// IdentifierFor derives the identifier-style form of a query: lower case,
// spaces to underscores, other non-alphanumerics removed.
func IdentifierFor(q string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(q)) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))):
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}

// SignificantWords returns the distinct words of s that are at least four
// characters long and not stop words, in order of appearance.
func SignificantWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	seen := map[string]bool{}
	for _, w := range fields {
		if len(w) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// odataString quotes s as an OData string literal.
func odataString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
