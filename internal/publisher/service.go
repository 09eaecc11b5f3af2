package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"dealflow/internal/logger"
	"dealflow/pkg/errors"
	"dealflow/pkg/metrics"
)

// maxRichTextLength is the per-field content cap imposed by the workspace API.
const maxRichTextLength = 2000

// Service publishes validated deals into the workspace database and answers
// schema and listing queries against it.
type Service struct {
	client Client
	logger logger.Logger
}

func NewService(client Client, log logger.Logger) *Service {
	return &Service{client: client, logger: log}
}

// VerifySchema retrieves the live database definition and compares it against
// the required deal schema.
func (s *Service) VerifySchema(ctx context.Context) (SchemaReport, error) {
	db, err := s.client.RetrieveDatabase(ctx)
	if err != nil {
		return SchemaReport{}, err
	}
	report := compareSchema(db)
	if !report.Valid {
		s.logger.WarnwCtx(ctx, "workspace schema does not match required shape",
			"missing_fields", report.MissingFields,
			"mismatched_types", report.MismatchedTypes,
			"missing_options", report.MissingOptions,
		)
	}
	return report, nil
}

// CreateDeal re-validates the deal at the publish boundary, then creates a
// workspace page for it. The returned page carries the external URL callers
// persist alongside the deal.
func (s *Service) CreateDeal(ctx context.Context, deal DealInput) (*Page, error) {
	if err := validateDeal(deal); err != nil {
		return nil, err
	}

	start := time.Now()
	page, err := s.client.CreatePage(ctx, buildProperties(deal))
	if err != nil {
		return nil, err
	}
	if page.URL == "" {
		return nil, errors.ErrPublish.WithMessage("workspace returned a page without a URL")
	}
	metrics.PublishDuration.Observe(time.Since(start).Seconds())

	s.logger.InfowCtx(ctx, "deal published to workspace",
		"page_id", page.ID,
		"partner", deal.PartnerName,
		"geo", deal.Geo,
	)
	return page, nil
}

// UpdateStatus sets the processing status of an existing page. Only the
// status field is written, so re-applying the same status is a no-op in
// effect.
func (s *Service) UpdateStatus(ctx context.Context, pageID, status string) error {
	switch status {
	case StatusPending, StatusProcessed, StatusFailed, StatusVerified:
	default:
		return errors.ErrValidation.WithMessage(fmt.Sprintf("unknown processing status %q", status))
	}
	return s.client.UpdatePage(ctx, pageID, map[string]Property{
		"Processing_Status": {Select: &SelectOption{Name: status}},
	})
}

// ListActiveDeals returns the deals whose Active_Status is Active and whose
// expiration date is still in the future, optionally narrowed to a geo. The
// whole filter runs server-side in a single query round trip.
func (s *Service) ListActiveDeals(ctx context.Context, geo string) ([]DealSummary, error) {
	conditions := []map[string]interface{}{
		{
			"property": "Active_Status",
			"select":   map[string]string{"equals": ActiveStatusActive},
		},
		{
			"property": "Expiration_Date",
			"date":     map[string]string{"after": time.Now().UTC().Format("2006-01-02")},
		},
	}
	if geo = strings.TrimSpace(geo); geo != "" {
		conditions = append(conditions, map[string]interface{}{
			"property":  "Geo",
			"rich_text": map[string]string{"contains": strings.ToUpper(geo)},
		})
	}

	pages, err := s.client.QueryDatabase(ctx, map[string]interface{}{"and": conditions})
	if err != nil {
		return nil, err
	}

	summaries := make([]DealSummary, 0, len(pages))
	for _, page := range pages {
		summaries = append(summaries, DealSummary{
			ID:             page.ID,
			URL:            page.URL,
			Partner:        selectName(page.Properties["Partner"]),
			Geo:            richTextValue(page.Properties["Geo"]),
			PriceModel:     selectName(page.Properties["Price_Model"]),
			ExpirationDate: dateStart(page.Properties["Expiration_Date"]),
			ActiveStatus:   selectName(page.Properties["Active_Status"]),
		})
	}
	return summaries, nil
}

func validateDeal(deal DealInput) error {
	var problems []string
	if strings.TrimSpace(deal.PartnerName) == "" {
		problems = append(problems, "partner_name is required")
	}
	geo := strings.TrimSpace(deal.Geo)
	if geo == "" {
		problems = append(problems, "geo is required")
	} else if len(geo) != 2 {
		problems = append(problems, "geo must be a 2-letter region code")
	}
	switch deal.PricingModel {
	case "CPA", "CPL", "CRG", "Hybrid":
	case "":
		problems = append(problems, "pricing_model is required")
	default:
		problems = append(problems, fmt.Sprintf("unknown pricing model %q", deal.PricingModel))
	}
	if deal.ExpirationDate != "" && !isISODate(deal.ExpirationDate) {
		problems = append(problems, "expiration_date must be an ISO-8601 date")
	}

	if len(problems) > 0 {
		return errors.ErrPublish.
			WithMessage("deal failed publish validation").
			WithDetail("problems", problems)
	}
	return nil
}

func isISODate(value string) bool {
	if _, err := time.Parse("2006-01-02", value); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

func buildProperties(deal DealInput) map[string]Property {
	props := map[string]Property{
		"Partner":           {Select: &SelectOption{Name: strings.TrimSpace(deal.PartnerName)}},
		"Geo":               {RichText: richText(strings.ToUpper(strings.TrimSpace(deal.Geo)))},
		"Price_Model":       {Select: &SelectOption{Name: deal.PricingModel}},
		"Original_Message":  {RichText: richText(truncate(deal.RawText, maxRichTextLength))},
		"Processing_Status": {Select: &SelectOption{Name: StatusProcessed}},
		"Active_Status":     {Select: &SelectOption{Name: ActiveStatusActive}},
	}

	if deal.LanguageCode != "" {
		props["Language"] = Property{Select: &SelectOption{Name: strings.ToUpper(deal.LanguageCode)}}
	}
	if deal.CPAAmount != nil {
		props["CPA_Amount"] = Property{Number: deal.CPAAmount}
	}
	if deal.CRGPercentage != nil {
		props["CRG_Percentage"] = Property{Number: deal.CRGPercentage}
	}
	if deal.CPLAmount != nil {
		props["CPL_Amount"] = Property{Number: deal.CPLAmount}
	}
	if deal.ConversionRate != "" {
		props["Conversion_Rate"] = Property{RichText: richText(deal.ConversionRate)}
	}
	if len(deal.Sources) > 0 {
		props["Sources"] = Property{MultiSelect: selectOptions(deal.Sources)}
	}
	if len(deal.Funnels) > 0 {
		props["Funnels"] = Property{MultiSelect: selectOptions(deal.Funnels)}
	}
	if deal.ExpirationDate != "" {
		props["Expiration_Date"] = Property{Date: &DateValue{Start: deal.ExpirationDate}}
	}
	return props
}

func richText(content string) []RichText {
	return []RichText{{Text: TextContent{Content: content}}}
}

func selectOptions(names []string) []SelectOption {
	options := make([]SelectOption, 0, len(names))
	for _, name := range names {
		options = append(options, SelectOption{Name: name})
	}
	return options
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func selectName(p Property) string {
	if p.Select == nil {
		return ""
	}
	return p.Select.Name
}

func richTextValue(p Property) string {
	var b strings.Builder
	for _, rt := range p.RichText {
		b.WriteString(rt.Text.Content)
	}
	return b.String()
}

func dateStart(p Property) string {
	if p.Date == nil {
		return ""
	}
	return p.Date.Start
}
