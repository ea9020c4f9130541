package domain

import "time"

// Policy represents a stored account-access policy module (Rego source).
// Disabled policies are kept for audit but never evaluated.
type Policy struct {
	ID        string
	Name      string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}
