// Package leads imports prospects from CSV exports. Enrichment tools all
// export slightly different headers for the same fields, so the importer
// normalizes headers through a mapping table, validates emails, and
// deduplicates both within the file and against already-stored prospects.
package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/campaign"
)

// columnMappings normalizes the header variants common export tools use.
var columnMappings = map[string]string{
	"email":         "email",
	"email_address": "email",
	"work_email":    "email",
	"contact_email": "email",
	"primary_email": "email",

	"first_name": "first_name",
	"firstname":  "first_name",
	"first":      "first_name",
	"given_name": "first_name",

	"last_name":   "last_name",
	"lastname":    "last_name",
	"last":        "last_name",
	"surname":     "last_name",
	"family_name": "last_name",

	"company":      "company",
	"company_name": "company",
	"organization": "company",
	"org":          "company",
	"account_name": "company",

	"title":     "title",
	"job_title": "title",
	"position":  "title",
	"role":      "title",

	"industry":         "industry",
	"company_industry": "industry",
	"sector":           "industry",

	"company_size":   "company_size",
	"employees":      "company_size",
	"employee_count": "company_size",
	"headcount":      "company_size",
	"size":           "company_size",

	"linkedin_url":        "linkedin_url",
	"linkedin":            "linkedin_url",
	"linkedin_profile":    "linkedin_url",
	"person_linkedin_url": "linkedin_url",
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// genericEmailPatterns match role accounts and test addresses that are
// useless for outreach.
var genericEmailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)@example\.com$`),
	regexp.MustCompile(`(?i)@test\.com$`),
	regexp.MustCompile(`(?i)@mailinator\.com$`),
	regexp.MustCompile(`(?i)^test@`),
	regexp.MustCompile(`(?i)^noreply@`),
	regexp.MustCompile(`(?i)^no-reply@`),
	regexp.MustCompile(`(?i)^info@`),
	regexp.MustCompile(`(?i)^contact@`),
	regexp.MustCompile(`(?i)^sales@`),
	regexp.MustCompile(`(?i)^support@`),
}

// RowError records why one CSV row was rejected.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Invalid    int        `json:"invalid"`
	Errors     []RowError `json:"errors,omitempty"`
}

// TotalProcessed returns how many data rows the run examined.
func (r *ImportResult) TotalProcessed() int {
	return r.Imported + r.Duplicates + r.Invalid
}

// Summary renders the result as a log line.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf("imported %d, %d duplicates skipped, %d invalid rows",
		r.Imported, r.Duplicates, r.Invalid)
}

// ProspectStore persists imported prospects. *campaign.Service satisfies it;
// a duplicate email must surface as campaign.ErrDuplicateEmail.
type ProspectStore interface {
	AddProspect(ctx context.Context, p *domain.Prospect) error
}

// Importer parses and validates CSV lead exports.
type Importer struct {
	store             ProspectStore
	customMappings    map[string]string
	skipGenericEmails bool
}

// NewImporter creates an importer that skips generic role addresses.
func NewImporter(store ProspectStore) *Importer {
	return &Importer{
		store:             store,
		customMappings:    make(map[string]string),
		skipGenericEmails: true,
	}
}

// WithCustomMapping adds an extra header-to-field mapping.
func (im *Importer) WithCustomMapping(header, field string) *Importer {
	im.customMappings[normalizeHeader(header)] = field
	return im
}

// WithGenericEmails disables the generic-address filter.
func (im *Importer) WithGenericEmails() *Importer {
	im.skipGenericEmails = false
	return im
}

// ImportCSV reads the full CSV stream and stores every valid, new prospect.
// Rows failing validation are counted and reported but never abort the run;
// only a malformed CSV structure does.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}
	fields := im.mapHeaders(headers)

	result := &ImportResult{}
	seen := make(map[string]bool)

	for rowNum := 2; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", rowNum, err)
		}

		p, reason := im.buildProspect(fields, record)
		if reason != "" {
			result.Invalid++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Reason: reason})
			continue
		}
		if seen[p.Email] {
			result.Duplicates++
			continue
		}
		seen[p.Email] = true

		err = im.store.AddProspect(ctx, p)
		switch {
		case err == nil:
			result.Imported++
		case errors.Is(err, campaign.ErrDuplicateEmail):
			result.Duplicates++
		default:
			return result, fmt.Errorf("storing row %d: %w", rowNum, err)
		}
	}
	return result, nil
}

// mapHeaders resolves each CSV column to a prospect field name. Unknown
// headers become custom_<header> and land in CustomFields.
func (im *Importer) mapHeaders(headers []string) []string {
	fields := make([]string, len(headers))
	for i, h := range headers {
		normalized := normalizeHeader(h)
		if field, ok := im.customMappings[normalized]; ok {
			fields[i] = field
			continue
		}
		if field, ok := columnMappings[normalized]; ok {
			fields[i] = field
			continue
		}
		fields[i] = "custom_" + normalized
	}
	return fields
}

func (im *Importer) buildProspect(fields []string, record []string) (*domain.Prospect, string) {
	mapped := make(map[string]string)
	custom := make(map[string]string)

	for i, value := range record {
		if i >= len(fields) {
			break
		}
		value = strings.TrimSpace(value)
		if field := fields[i]; strings.HasPrefix(field, "custom_") {
			if value != "" {
				custom[strings.TrimPrefix(field, "custom_")] = value
			}
		} else {
			mapped[field] = value
		}
	}

	email := strings.ToLower(mapped["email"])
	switch {
	case email == "":
		return nil, "missing email address"
	case !emailRegex.MatchString(email):
		return nil, fmt.Sprintf("invalid email format: %s", email)
	case im.skipGenericEmails && isGenericEmail(email):
		return nil, fmt.Sprintf("generic email skipped: %s", email)
	}

	if mapped["first_name"] == "" {
		return nil, "missing first name"
	}
	if mapped["last_name"] == "" {
		return nil, "missing last name"
	}
	if mapped["company"] == "" {
		return nil, "missing company name"
	}

	p := &domain.Prospect{
		Email:     email,
		FirstName: mapped["first_name"],
		LastName:  mapped["last_name"],
		Company:   mapped["company"],
		Title:     mapped["title"],
	}
	if v := mapped["industry"]; v != "" {
		p.Industry = &v
	}
	if v := mapped["company_size"]; v != "" {
		p.CompanySize = &v
	}
	if v := mapped["linkedin_url"]; v != "" {
		p.LinkedInURL = &v
	}
	if len(custom) > 0 {
		p.CustomFields = custom
	}
	return p, ""
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToLower(h)), " ", "_")
}

func isGenericEmail(email string) bool {
	for _, p := range genericEmailPatterns {
		if p.MatchString(email) {
			return true
		}
	}
	return false
}
