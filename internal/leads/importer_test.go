package leads

import (
	"context"
	"strings"
	"testing"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/campaign"
)

type memStore struct {
	prospects []*domain.Prospect
	existing  map[string]bool
}

func newMemStore(existing ...string) *memStore {
	m := &memStore{existing: make(map[string]bool)}
	for _, e := range existing {
		m.existing[e] = true
	}
	return m
}

func (m *memStore) AddProspect(_ context.Context, p *domain.Prospect) error {
	if m.existing[p.Email] {
		return campaign.ErrDuplicateEmail
	}
	m.existing[p.Email] = true
	m.prospects = append(m.prospects, p)
	return nil
}

func TestImportCSVMapsApolloHeaders(t *testing.T) {
	csvData := strings.Join([]string{
		"First Name,Last Name,Work Email,Company Name,Job Title,Person Linkedin Url,Employees",
		"Jordan,Lee,jordan.lee@acmecorp.com,Acme Corp,VP Sales,https://linkedin.com/in/jlee,200",
	}, "\n")

	store := newMemStore()
	result, err := NewImporter(store).ImportCSV(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 1 || result.Invalid != 0 || result.Duplicates != 0 {
		t.Fatalf("result = %+v", result)
	}

	p := store.prospects[0]
	if p.Email != "jordan.lee@acmecorp.com" {
		t.Errorf("email = %q", p.Email)
	}
	if p.FirstName != "Jordan" || p.LastName != "Lee" || p.Company != "Acme Corp" {
		t.Errorf("name/company = %q %q %q", p.FirstName, p.LastName, p.Company)
	}
	if p.Title != "VP Sales" {
		t.Errorf("title = %q", p.Title)
	}
	if p.LinkedInURL == nil || !strings.Contains(*p.LinkedInURL, "jlee") {
		t.Errorf("linkedin = %v", p.LinkedInURL)
	}
	if p.CompanySize == nil || *p.CompanySize != "200" {
		t.Errorf("company size = %v", p.CompanySize)
	}
}

func TestImportCSVUnknownHeadersBecomeCustomFields(t *testing.T) {
	csvData := strings.Join([]string{
		"email,first_name,last_name,company,Funding Stage",
		"casey@bravoinc.com,Casey,Kim,Bravo Inc,Series B",
	}, "\n")

	store := newMemStore()
	result, err := NewImporter(store).ImportCSV(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("result = %+v", result)
	}
	if got := store.prospects[0].CustomFields["funding_stage"]; got != "Series B" {
		t.Errorf("custom field = %q, want Series B", got)
	}
}

func TestImportCSVValidation(t *testing.T) {
	// Rows: missing email, invalid format, generic role address, missing
	// first name, then one valid prospect.
	csvData := strings.Join([]string{
		"email,first_name,last_name,company",
		",Riley,Ray,NoMail Ltd",
		"not-an-email,Riley,Ray,NoMail Ltd",
		"info@bigco.com,Riley,Ray,BigCo",
		"riley@charliesys.com,,Ray,Charlie Sys",
		"riley@charliesys.com,Riley,Ray,Charlie Sys",
	}, "\n")

	store := newMemStore()
	result, err := NewImporter(store).ImportCSV(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
	if result.Invalid != 4 {
		t.Errorf("invalid = %d, want 4", result.Invalid)
	}
	if len(result.Errors) != 4 {
		t.Fatalf("errors = %+v", result.Errors)
	}
	if result.Errors[0].Row != 2 || result.Errors[0].Reason != "missing email address" {
		t.Errorf("first error = %+v", result.Errors[0])
	}
}

func TestImportCSVDedupes(t *testing.T) {
	csvData := strings.Join([]string{
		"email,first_name,last_name,company",
		"dana@deltaco.com,Dana,Cruz,Delta Co",
		"DANA@deltaco.com,Dana,Cruz,Delta Co", // in-file duplicate, case-insensitive
		"sam@echollc.com,Sam,Okafor,Echo LLC", // already stored
	}, "\n")

	store := newMemStore("sam@echollc.com")
	result, err := NewImporter(store).ImportCSV(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
	if result.Duplicates != 2 {
		t.Errorf("duplicates = %d, want 2", result.Duplicates)
	}
	if result.TotalProcessed() != 3 {
		t.Errorf("total = %d, want 3", result.TotalProcessed())
	}
}

func TestImporterWithGenericEmails(t *testing.T) {
	csvData := strings.Join([]string{
		"email,first_name,last_name,company",
		"info@bigco.com,Riley,Ray,BigCo",
	}, "\n")

	store := newMemStore()
	result, err := NewImporter(store).WithGenericEmails().
		ImportCSV(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1 with the filter disabled", result.Imported)
	}
}
