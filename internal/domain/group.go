package domain

import (
	"strings"
	"unicode"
)

// strippedRunes are removed by NormalizeName in addition to whitespace.
// ASCII brackets plus the full-width and CJK quotation forms the feed mixes
// freely with them.
var strippedRunes = map[rune]struct{}{
	'(': {}, ')': {}, '[': {}, ']': {}, '{': {}, '}': {},
	'（': {}, '）': {}, '【': {}, '】': {},
	'「': {}, '」': {}, '『': {}, '』': {},
	'〈': {}, '〉': {}, '《': {}, '》': {},
}

// NormalizeName prepares a section name or keyword for matching: all
// whitespace (including ideographic space) and bracket characters removed.
func NormalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if _, drop := strippedRunes[r]; drop {
			return -1
		}
		return r
	}, s)
}

// GroupBySegment buckets incidents by configured segment keyword. Every
// keyword is present in the result, mapped to an empty (non-nil) slice when
// nothing matched. An incident matching several keywords appears in each
// matching bucket; within a bucket the incoming order is preserved. Keywords
// normalizing to the empty string match nothing. Callers must pass each
// keyword once; a repeated keyword doubles its bucket's entries.
func GroupBySegment(incidents []Incident, keywords []string) map[string][]Incident {
	normalized := make([]string, len(keywords))
	groups := make(map[string][]Incident, len(keywords))
	for i, kw := range keywords {
		normalized[i] = NormalizeName(kw)
		groups[kw] = []Incident{}
	}

	for _, inc := range incidents {
		// Each field is normalized separately so a keyword cannot match
		// across a field boundary.
		fields := strings.Split(inc.MatchText(), "\n")
		for f, field := range fields {
			fields[f] = NormalizeName(field)
		}
		for i, kw := range keywords {
			if normalized[i] == "" {
				continue
			}
			for _, field := range fields {
				if strings.Contains(field, normalized[i]) {
					groups[kw] = append(groups[kw], inc)
					break
				}
			}
		}
	}

	return groups
}
