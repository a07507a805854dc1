package models

import (
	"fmt"
	"time"
)

// IntentCategory classifies why a user would issue the tracked query
type IntentCategory string

const (
	IntentInformational IntentCategory = "informational"
	IntentTransactional IntentCategory = "transactional"
	IntentNavigational  IntentCategory = "navigational"
	IntentCommercial    IntentCategory = "commercial"
)

// ScanFrequency controls how often a keyword is probed
type ScanFrequency string

const (
	FrequencyDaily  ScanFrequency = "daily"
	FrequencyWeekly ScanFrequency = "weekly"
	FrequencyManual ScanFrequency = "manual"
)

// Keyword is a tracked search query owned by a project.
// Keywords are soft-disabled (Active=false) rather than deleted so historical
// scan results keep a valid parent.
type Keyword struct {
	ID            string         `json:"id" badgerhold:"key"`
	ProjectID     string         `json:"project_id" badgerholdIndex:"ProjectID"`
	Text          string         `json:"text"`
	Intent        IntentCategory `json:"intent"`
	Frequency     ScanFrequency  `json:"frequency"`
	Engines       []string       `json:"engines"`
	Active        bool           `json:"active"`
	LastScannedAt *time.Time     `json:"last_scanned_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Validate checks enum fields and required attributes
func (k *Keyword) Validate() error {
	if k.ProjectID == "" {
		return fmt.Errorf("keyword project_id is required")
	}
	if k.Text == "" {
		return fmt.Errorf("keyword text is required")
	}
	switch k.Intent {
	case IntentInformational, IntentTransactional, IntentNavigational, IntentCommercial:
	default:
		return fmt.Errorf("invalid intent category: %s", k.Intent)
	}
	switch k.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyManual:
	default:
		return fmt.Errorf("invalid scan frequency: %s", k.Frequency)
	}
	if len(k.Engines) == 0 {
		return fmt.Errorf("keyword requires at least one engine")
	}
	return nil
}

// Project owns keywords and carries the brand/competitor entities the
// evaluation stage needs for disambiguation.
type Project struct {
	ID          string       `json:"id" badgerhold:"key"`
	Name        string       `json:"name"`
	BrandName   string       `json:"brand_name"`
	BrandDomain string       `json:"brand_domain"`
	Competitors []Competitor `json:"competitors"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Competitor is a tracked rival entity. Context disambiguates brand names
// that collide with common nouns (e.g. "Monday" the product vs the weekday).
type Competitor struct {
	Name    string `json:"name"`
	Domain  string `json:"domain,omitempty"`
	Context string `json:"context,omitempty"`
}
