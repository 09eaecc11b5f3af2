package store

import "time"

type MessageStatus string

const (
	StatusPending    MessageStatus = "pending"
	StatusProcessing MessageStatus = "processing"
	StatusCompleted  MessageStatus = "completed"
	StatusFailed     MessageStatus = "failed"
)

// MessageRecord tracks the lifecycle of one ingested text. ProcessedAt is
// set iff Status is completed; Attempts only ever grows.
type MessageRecord struct {
	ID           string        `json:"id" db:"id"`
	ExternalID   string        `json:"external_id" db:"external_id"`
	RawText      string        `json:"raw_text" db:"raw_text"`
	Status       MessageStatus `json:"status" db:"status"`
	Attempts     int           `json:"attempts" db:"attempts"`
	PartnerName  *string       `json:"partner_name,omitempty" db:"partner_name"`
	ProcessedAt  *time.Time    `json:"processed_at,omitempty" db:"processed_at"`
	ErrorMessage *string       `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

type PricingModel string

const (
	PricingCPA    PricingModel = "CPA"
	PricingCPL    PricingModel = "CPL"
	PricingCRG    PricingModel = "CRG"
	PricingHybrid PricingModel = "Hybrid"
)

// DealRecord is created only on full pipeline success and is owned by its
// MessageRecord. ExternalURL is always non-empty.
type DealRecord struct {
	ID                string       `json:"id" db:"id"`
	MessageID         string       `json:"message_id" db:"message_id"`
	Geo               string       `json:"geo" db:"geo"`
	LanguageCode      string       `json:"language_code" db:"language_code"`
	IsNative          bool         `json:"is_native" db:"is_native"`
	PricingModel      PricingModel `json:"pricing_model" db:"pricing_model"`
	CPAAmount         *float64     `json:"cpa_amount,omitempty" db:"cpa_amount"`
	CRGPercentage     *float64     `json:"crg_percentage,omitempty" db:"crg_percentage"`
	CPLAmount         *float64     `json:"cpl_amount,omitempty" db:"cpl_amount"`
	DeductionLimit    string       `json:"deduction_limit" db:"deduction_limit"`
	ConversionRate    string       `json:"conversion_rate" db:"conversion_rate"`
	ConversionCurrent string       `json:"conversion_current" db:"conversion_current"`
	ConversionDetails string       `json:"conversion_details" db:"conversion_details"`
	Sources           []string     `json:"sources" db:"sources"`
	Funnels           []string     `json:"funnels" db:"funnels"`
	ExternalURL       string       `json:"external_url" db:"external_url"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}
