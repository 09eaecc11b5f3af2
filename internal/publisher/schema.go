package publisher

import "sort"

// requiredSchema is the contract the workspace database must satisfy before
// any deal is published into it.
var requiredSchema = map[string]PropertyType{
	"Partner":           PropertySelect,
	"Geo":               PropertyRichText,
	"Language":          PropertySelect,
	"Price_Model":       PropertySelect,
	"CPA_Amount":        PropertyNumber,
	"CRG_Percentage":    PropertyNumber,
	"CPL_Amount":        PropertyNumber,
	"Conversion_Rate":   PropertyRichText,
	"Sources":           PropertyMultiSelect,
	"Funnels":           PropertyMultiSelect,
	"Original_Message":  PropertyRichText,
	"Processing_Status": PropertySelect,
	"Expiration_Date":   PropertyDate,
	"Active_Status":     PropertySelect,
}

// requiredOptions lists the option values that must exist on select fields.
var requiredOptions = map[string][]string{
	"Price_Model":       {"CPA", "CPL", "CRG", "Hybrid"},
	"Processing_Status": {"Pending", "Processed", "Failed", "Verified"},
	"Active_Status":     {"Active", "Inactive", "Expired"},
	"Language":          {"EN", "ES", "FR", "DE", "IT"},
}

// Processing status values written by the pipeline.
const (
	StatusPending   = "Pending"
	StatusProcessed = "Processed"
	StatusFailed    = "Failed"
	StatusVerified  = "Verified"
)

const ActiveStatusActive = "Active"

func compareSchema(db *Database) SchemaReport {
	report := SchemaReport{
		MissingFields:   []string{},
		MismatchedTypes: []string{},
		MissingOptions:  []string{},
	}

	for field, wantType := range requiredSchema {
		schema, ok := db.Properties[field]
		if !ok {
			report.MissingFields = append(report.MissingFields, field)
			continue
		}
		if schema.Type != wantType {
			report.MismatchedTypes = append(report.MismatchedTypes, field)
			continue
		}
		for _, opt := range missingOptions(field, schema) {
			report.MissingOptions = append(report.MissingOptions, field+":"+opt)
		}
	}

	sort.Strings(report.MissingFields)
	sort.Strings(report.MismatchedTypes)
	sort.Strings(report.MissingOptions)
	report.Valid = len(report.MissingFields) == 0 &&
		len(report.MismatchedTypes) == 0 &&
		len(report.MissingOptions) == 0
	return report
}

func missingOptions(field string, schema PropertySchema) []string {
	want, ok := requiredOptions[field]
	if !ok {
		return nil
	}

	have := map[string]bool{}
	if schema.Select != nil {
		for _, opt := range schema.Select.Options {
			have[opt.Name] = true
		}
	}

	var missing []string
	for _, name := range want {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
