package domain

import "time"

// Social identity providers accepted by the social login endpoint.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// LinkedAccount ties a user to an external identity. (Provider,
// ProviderUserID) is unique: one external identity maps to exactly one user.
type LinkedAccount struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	Email          string // email asserted by the provider at link time
	CreatedAt      time.Time
}
