package model

// EmployeeRecord is one scraped employee of a company. It is consumed by a
// single sync run and never stored as-is.
type EmployeeRecord struct {
	FullName   string `json:"full_name"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Title      string `json:"title,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	Location   string `json:"location,omitempty"`
	Tenure     string `json:"tenure,omitempty"` // free text, e.g. "3 years", "8 meses"
	About      string `json:"about,omitempty"`
}
