package model

// ReconcileResult counts the decisor writes of one account reconciliation.
type ReconcileResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Add accumulates other into r.
func (r *ReconcileResult) Add(other ReconcileResult) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Deleted += other.Deleted
}

// AccountSyncResult is returned by a single-account sync.
type AccountSyncResult struct {
	ReconcileResult
	AccountID string `json:"account_id"`
	Message   string `json:"message"`
}

// OrganizationSyncResult aggregates a sync over every eligible account of
// an organization.
type OrganizationSyncResult struct {
	ReconcileResult
	OrganizationID    string `json:"organization_id"`
	AccountsProcessed int    `json:"accounts_processed"`
	AccountsFailed    int    `json:"accounts_failed"`
	// Interrupted is set when the context ended before every account ran.
	Interrupted bool   `json:"interrupted,omitempty"`
	Message     string `json:"message"`
}
