package extractor

import "strings"

// sourceAliases maps canonical traffic-source names to their known spellings.
// Lookup is case-insensitive on the lower-cased, trimmed input.
var sourceAliases = map[string][]string{
	"FB":        {"facebook", "fb"},
	"GG":        {"google", "gg"},
	"NativeAds": {"native", "nativeads", "native-ads"},
	"Bing":      {"bing", "microsoft"},
	"SEO":       {"seo", "organic"},
	"MSN":       {"msn", "microsoft news"},
}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]string {
	idx := make(map[string]string)
	for canonical, variants := range sourceAliases {
		// Canonical names map to themselves so normalization is idempotent.
		idx[strings.ToLower(canonical)] = canonical
		for _, v := range variants {
			idx[strings.ToLower(v)] = canonical
		}
	}
	return idx
}

// NormalizeSource lower-cases and trims the input, then maps it through the
// alias table; unmapped sources are upper-cased verbatim.
func NormalizeSource(source string) string {
	key := strings.ToLower(strings.TrimSpace(source))
	if canonical, ok := aliasIndex[key]; ok {
		return canonical
	}
	return strings.ToUpper(key)
}

// NormalizeSources normalizes each entry, preserving input order.
// Normalizing twice yields the same result as normalizing once.
func NormalizeSources(sources []string) []string {
	if len(sources) == 0 {
		return sources
	}
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = NormalizeSource(s)
	}
	return out
}
