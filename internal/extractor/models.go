package extractor

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

type CompletionRequest struct {
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ParsedDeal is the structured candidate extracted from free text.
type ParsedDeal struct {
	PartnerName       string   `json:"partner_name"`
	Geo               string   `json:"geo"`
	LanguageCode      string   `json:"language_code"`
	IsNative          bool     `json:"is_native"`
	PricingModel      string   `json:"pricing_model"`
	CPAAmount         *float64 `json:"cpa_amount,omitempty"`
	CRGPercentage     *float64 `json:"crg_percentage,omitempty"`
	CPLAmount         *float64 `json:"cpl_amount,omitempty"`
	DeductionLimit    string   `json:"deduction_limit,omitempty"`
	ConversionRate    string   `json:"conversion_rate,omitempty"`
	ConversionCurrent string   `json:"conversion_current,omitempty"`
	ConversionDetails string   `json:"conversion_details,omitempty"`
	Sources           []string `json:"sources,omitempty"`
	Funnels           []string `json:"funnels,omitempty"`
	ExpirationDate    string   `json:"expiration_date,omitempty"`
}

// VerificationSummary is the human-readable confirmation block attached to
// every parse result.
type VerificationSummary struct {
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"key_points"`
	Warnings          []string `json:"warnings"`
	RequiresAttention bool     `json:"requires_attention"`
}

// ParseResult carries the candidate deal together with the accumulated
// validation errors. Validation errors do not prevent a result from being
// returned; the caller decides whether they are fatal.
type ParseResult struct {
	Deal                ParsedDeal          `json:"deal"`
	Errors              []string            `json:"errors,omitempty"`
	RequiredFieldErrors []string            `json:"required_field_errors,omitempty"`
	Verification        VerificationSummary `json:"verification"`
}

// Usable reports whether the result may be published: true iff no required
// field is missing. Format-level warnings alone do not block publishing.
func (r *ParseResult) Usable() bool {
	return len(r.RequiredFieldErrors) == 0
}

func (r *ParseResult) RequiresAttention() bool {
	return len(r.Errors) > 0
}
