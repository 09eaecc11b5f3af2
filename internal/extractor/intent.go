package extractor

import "strings"

// Intent is the tagged classification of an interactive chat message.
// Dispatch on it is an exhaustive switch, so adding an intent is a
// compile-time-checked change.
type Intent int

const (
	IntentFreeform Intent = iota
	IntentShowDeals
	IntentVerifySchema
	IntentParseDeal
)

func (i Intent) String() string {
	switch i {
	case IntentShowDeals:
		return "show_deals"
	case IntentVerifySchema:
		return "verify_schema"
	case IntentParseDeal:
		return "parse_deal"
	default:
		return "freeform"
	}
}

var intentPhrases = map[Intent][]string{
	IntentShowDeals:    {"show deals", "current deals", "active deals"},
	IntentVerifySchema: {"check column", "verify structure", "database schema"},
	IntentParseDeal:    {"parse deal"},
}

// ClassifyIntent matches known trigger phrases case-insensitively; anything
// unmatched is free-form conversation.
func ClassifyIntent(text string) Intent {
	lowered := strings.ToLower(text)
	for _, intent := range []Intent{IntentShowDeals, IntentVerifySchema, IntentParseDeal} {
		for _, phrase := range intentPhrases[intent] {
			if strings.Contains(lowered, phrase) {
				return intent
			}
		}
	}
	return IntentFreeform
}
