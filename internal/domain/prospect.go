package domain

import "time"

// Prospect is a single outreach target. Email is unique across prospects
// and is the deduplication key for imports.
type Prospect struct {
	ID           string            `json:"id" db:"id"`
	Email        string            `json:"email" db:"email"`
	FirstName    string            `json:"first_name" db:"first_name"`
	LastName     string            `json:"last_name" db:"last_name"`
	Company      string            `json:"company" db:"company"`
	Title        string            `json:"title" db:"title"`
	Industry     *string           `json:"industry" db:"industry"`
	CompanySize  *string           `json:"company_size" db:"company_size"`
	LinkedInURL  *string           `json:"linkedin_url" db:"linkedin_url"`
	CustomFields map[string]string `json:"custom_fields" db:"custom_fields"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}
