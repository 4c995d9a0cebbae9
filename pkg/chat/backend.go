// Package chat is the client for the hosted chat backend. The server
// never stores messages itself; channels, members and message history
// all live in the backend and are reached through this package.
package chat

import (
	"context"

	"chatforum/pkg/models"
)

// User is the chat backend's view of a forum member.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// Channel identifies one topic channel plus the creation attributes the
// backend needs when the channel does not exist yet.
type Channel struct {
	Type      string   `json:"type"`
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Image     string   `json:"image,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`
	Members   []string `json:"members,omitempty"`
}

// Backend is the capability surface the rest of the server needs from
// the chat provider. Handlers and the onboarding flow depend on this
// interface rather than the concrete HTTP client.
type Backend interface {
	// CreateToken mints a client token the browser uses to connect.
	CreateToken(userID string) (string, error)
	// UpsertUser creates or updates the user record.
	UpsertUser(ctx context.Context, u User) error
	// EnsureChannel creates the channel if absent; existing channels are
	// left untouched.
	EnsureChannel(ctx context.Context, ch Channel) error
	// AddMembers joins the users to an existing channel. Already-joined
	// users are a no-op on the backend side.
	AddMembers(ctx context.Context, channelType, channelID string, userIDs []string) error
	// Messages returns up to limit messages for a channel, newest first.
	Messages(ctx context.Context, channelType, channelID string, limit int) ([]models.RawMessage, error)
	// SendMessage posts a message and returns it as stored.
	SendMessage(ctx context.Context, channelType, channelID string, msg models.RawMessage) (models.RawMessage, error)
	// Health probes the backend.
	Health(ctx context.Context) error
}
