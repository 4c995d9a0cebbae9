// Package identity is the client for the hosted identity provider. The
// server trusts it for user profiles and stashes per-user provisioning
// state in the user's public metadata.
package identity

import (
	"context"
)

// Profile is the subset of the provider's user record the server uses.
type Profile struct {
	ID        string         `json:"id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	ImageURL  string         `json:"image_url"`
	Metadata  map[string]any `json:"public_metadata"`
}

// DisplayName assembles a human name from the profile, falling back to
// the user id when the profile has no name at all.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	case p.LastName != "":
		return p.LastName
	default:
		return p.ID
	}
}

// Provider is the capability surface the server needs from the identity
// SaaS.
type Provider interface {
	GetUser(ctx context.Context, userID string) (Profile, error)
	// UpdateMetadata merges the given keys into the user's public
	// metadata; existing keys not named are preserved by the provider.
	UpdateMetadata(ctx context.Context, userID string, meta map[string]any) error
}
