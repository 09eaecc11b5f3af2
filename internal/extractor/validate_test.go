package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDeal(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantError bool
	}{
		{
			name:     "plain object",
			response: `{"partner_name": "Acme", "geo": "DE"}`,
		},
		{
			name:     "fenced json block",
			response: "```json\n{\"partner_name\": \"Acme\"}\n```",
		},
		{
			name:     "bare fence",
			response: "```\n{\"geo\": \"US\"}\n```",
		},
		{
			name:      "prose instead of json",
			response:  "I could not find a deal in this message.",
			wantError: true,
		},
		{
			name:      "empty response",
			response:  "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := decodeDeal(tt.response)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, raw)
		})
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	raw := &rawDeal{
		PartnerName:    "Acme Media",
		CPAAmount:      "twelve hundred",
		ExpirationDate: "next friday",
	}

	result := validate(raw)

	assert.False(t, result.Usable())
	assert.Len(t, result.RequiredFieldErrors, 3)
	assert.Contains(t, result.RequiredFieldErrors, "missing required field: geo")
	assert.Contains(t, result.RequiredFieldErrors, "missing required field: language_code")
	assert.Contains(t, result.RequiredFieldErrors, "missing required field: pricing_model")
	assert.Contains(t, result.Errors, "cpa_amount must be a number")
	assert.Contains(t, result.Errors, "invalid expiration date format")
	// All five problems are reported together, not just the first.
	assert.Len(t, result.Errors, 5)
}

func TestValidateUsableWithWarnings(t *testing.T) {
	raw := &rawDeal{
		PartnerName:   "Acme Media",
		Geo:           "DE",
		LanguageCode:  "DE",
		PricingModel:  "CPA",
		CRGPercentage: "ten",
	}

	result := validate(raw)

	assert.True(t, result.Usable(), "format warnings alone must not block publishing")
	assert.True(t, result.RequiresAttention())
	assert.Contains(t, result.Errors, "crg_percentage must be a number")
	assert.Nil(t, result.Deal.CRGPercentage)
}

func TestValidateCleanDeal(t *testing.T) {
	raw := &rawDeal{
		PartnerName:    " Acme Media ",
		Geo:            "DE",
		LanguageCode:   "DE",
		PricingModel:   "CPA",
		CPAAmount:      float64(1200),
		Sources:        []string{"facebook", "google"},
		ExpirationDate: "2026-12-31",
	}

	result := validate(raw)

	assert.True(t, result.Usable())
	assert.Empty(t, result.Errors)
	assert.Equal(t, "Acme Media", result.Deal.PartnerName)
	require.NotNil(t, result.Deal.CPAAmount)
	assert.Equal(t, 1200.0, *result.Deal.CPAAmount)
	assert.Equal(t, []string{"FB", "GG"}, result.Deal.Sources)
}

func TestValidISODate(t *testing.T) {
	assert.True(t, ValidISODate("2026-12-31"))
	assert.True(t, ValidISODate("2026-12-31T23:59:00Z"))
	assert.False(t, ValidISODate("31/12/2026"))
	assert.False(t, ValidISODate("soon"))
}

func TestBuildVerification(t *testing.T) {
	raw := &rawDeal{
		Geo:          "DE",
		LanguageCode: "DE",
		PricingModel: "CPA",
		Sources:      []string{"facebook"},
	}

	result := validate(raw)
	v := buildVerification(result)

	assert.Equal(t, "Deal for Unknown Partner", v.Summary)
	assert.Contains(t, v.KeyPoints, "Geographic Region: DE")
	assert.Contains(t, v.KeyPoints, "Traffic Sources: FB")
	assert.False(t, v.RequiresAttention)
}
