package model

// Account is a monitored target company. Accounts without a company
// LinkedIn URL are never scraped.
type Account struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organization_id"`
	Name           string  `json:"name"`
	LinkedInURL    *string `json:"linkedin_url,omitempty"`
}

// CompanyLinkedInURL returns the company page URL, or "" when unset.
func (a Account) CompanyLinkedInURL() string {
	if a.LinkedInURL == nil {
		return ""
	}
	return *a.LinkedInURL
}

// HasLinkedInURL reports whether the account can be scraped.
func (a Account) HasLinkedInURL() bool {
	return a.CompanyLinkedInURL() != ""
}
