package publisher

// Wire model for the workspace database API, limited to the property kinds
// the deal schema uses.

type PropertyType string

const (
	PropertySelect      PropertyType = "select"
	PropertyRichText    PropertyType = "rich_text"
	PropertyNumber      PropertyType = "number"
	PropertyMultiSelect PropertyType = "multi_select"
	PropertyDate        PropertyType = "date"
)

type SelectOption struct {
	Name string `json:"name"`
}

type TextContent struct {
	Content string `json:"content"`
}

type RichText struct {
	Text TextContent `json:"text"`
}

type DateValue struct {
	Start string `json:"start"`
}

// Property is a single page property value; exactly one field is set,
// matching the declared type.
type Property struct {
	Type        PropertyType   `json:"type,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
}

type OptionList struct {
	Options []SelectOption `json:"options"`
}

// PropertySchema is the declared shape of one database field.
type PropertySchema struct {
	Type        PropertyType `json:"type"`
	Select      *OptionList  `json:"select,omitempty"`
	MultiSelect *OptionList  `json:"multi_select,omitempty"`
}

type Database struct {
	ID         string                    `json:"id"`
	Properties map[string]PropertySchema `json:"properties"`
}

type Page struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Properties map[string]Property `json:"properties"`
}

// SchemaReport is the result of comparing the live database schema against
// the required one. Valid is true iff all three lists are empty.
type SchemaReport struct {
	Valid           bool     `json:"valid"`
	MissingFields   []string `json:"missing_fields"`
	MismatchedTypes []string `json:"mismatched_types"`
	MissingOptions  []string `json:"missing_options"`
}

// DealInput is the validated deal handed to the publish boundary. It is
// re-validated here independently of extraction.
type DealInput struct {
	PartnerName       string   `json:"partner_name"`
	Geo               string   `json:"geo"`
	LanguageCode      string   `json:"language_code"`
	PricingModel      string   `json:"pricing_model"`
	CPAAmount         *float64 `json:"cpa_amount,omitempty"`
	CRGPercentage     *float64 `json:"crg_percentage,omitempty"`
	CPLAmount         *float64 `json:"cpl_amount,omitempty"`
	ConversionRate    string   `json:"conversion_rate,omitempty"`
	Sources           []string `json:"sources,omitempty"`
	Funnels           []string `json:"funnels,omitempty"`
	ExpirationDate    string   `json:"expiration_date,omitempty"`
	RawText           string   `json:"raw_text"`
}

// DealSummary is one row of a workspace listing.
type DealSummary struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	Partner        string `json:"partner,omitempty"`
	Geo            string `json:"geo,omitempty"`
	PriceModel     string `json:"price_model,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	ActiveStatus   string `json:"active_status,omitempty"`
}
