package extractor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rawDeal is the wire shape of the model's response. Numeric fields are kept
// loose so a wrong type surfaces as a field-level validation error instead of
// aborting the whole decode.
type rawDeal struct {
	PartnerName       string      `json:"partner_name"`
	Geo               string      `json:"geo"`
	LanguageCode      string      `json:"language_code"`
	IsNative          bool        `json:"is_native"`
	PricingModel      string      `json:"pricing_model"`
	CPAAmount         interface{} `json:"cpa_amount"`
	CRGPercentage     interface{} `json:"crg_percentage"`
	CPLAmount         interface{} `json:"cpl_amount"`
	DeductionLimit    string      `json:"deduction_limit"`
	ConversionRate    string      `json:"conversion_rate"`
	ConversionCurrent string      `json:"conversion_current"`
	ConversionDetails string      `json:"conversion_details"`
	Sources           []string    `json:"sources"`
	Funnels           []string    `json:"funnels"`
	ExpirationDate    string      `json:"expiration_date"`
}

func decodeDeal(response string) (*rawDeal, error) {
	trimmed := strings.TrimSpace(response)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw rawDeal
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("response is not a JSON deal object: %w", err)
	}
	return &raw, nil
}

// validate accumulates every field-level error instead of short-circuiting
// on the first one. Required-field errors are tracked separately because only
// they make the result unusable for publishing.
func validate(raw *rawDeal) *ParseResult {
	result := &ParseResult{
		Deal: ParsedDeal{
			PartnerName:       strings.TrimSpace(raw.PartnerName),
			Geo:               strings.TrimSpace(raw.Geo),
			LanguageCode:      strings.TrimSpace(raw.LanguageCode),
			IsNative:          raw.IsNative,
			PricingModel:      strings.TrimSpace(raw.PricingModel),
			DeductionLimit:    raw.DeductionLimit,
			ConversionRate:    raw.ConversionRate,
			ConversionCurrent: raw.ConversionCurrent,
			ConversionDetails: raw.ConversionDetails,
			Funnels:           trimAll(raw.Funnels),
			ExpirationDate:    strings.TrimSpace(raw.ExpirationDate),
		},
	}

	for _, req := range []struct {
		name  string
		value string
	}{
		{"geo", result.Deal.Geo},
		{"language_code", result.Deal.LanguageCode},
		{"pricing_model", result.Deal.PricingModel},
	} {
		if req.value == "" {
			msg := fmt.Sprintf("missing required field: %s", req.name)
			result.RequiredFieldErrors = append(result.RequiredFieldErrors, msg)
			result.Errors = append(result.Errors, msg)
		}
	}

	result.Deal.CPAAmount = coerceNumber(raw.CPAAmount, "cpa_amount", result)
	result.Deal.CRGPercentage = coerceNumber(raw.CRGPercentage, "crg_percentage", result)
	result.Deal.CPLAmount = coerceNumber(raw.CPLAmount, "cpl_amount", result)

	if result.Deal.ExpirationDate != "" && !ValidISODate(result.Deal.ExpirationDate) {
		result.Errors = append(result.Errors, "invalid expiration date format")
	}

	result.Deal.Sources = NormalizeSources(raw.Sources)

	return result
}

// coerceNumber accepts only JSON numbers; absent fields stay nil, anything
// else is reported without aborting extraction.
func coerceNumber(v interface{}, field string, result *ParseResult) *float64 {
	if v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("%s must be a number", field))
		return nil
	}
}

// ValidISODate accepts an ISO-8601 calendar date or date-time string.
func ValidISODate(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	return false
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func buildVerification(result *ParseResult) VerificationSummary {
	partner := result.Deal.PartnerName
	if partner == "" {
		partner = "Unknown Partner"
	}

	orNotSpecified := func(s string) string {
		if s == "" {
			return "Not specified"
		}
		return s
	}

	return VerificationSummary{
		Summary: fmt.Sprintf("Deal for %s", partner),
		KeyPoints: []string{
			fmt.Sprintf("Geographic Region: %s", orNotSpecified(result.Deal.Geo)),
			fmt.Sprintf("Pricing Model: %s", orNotSpecified(result.Deal.PricingModel)),
			fmt.Sprintf("Traffic Sources: %s", strings.Join(result.Deal.Sources, ", ")),
		},
		Warnings:          result.Errors,
		RequiresAttention: len(result.Errors) > 0,
	}
}
