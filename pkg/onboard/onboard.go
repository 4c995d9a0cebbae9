// Package onboard provisions a new forum member across the chat backend
// and the identity provider: a chat token is minted and stashed in the
// user's metadata, the user record is upserted, and the member is joined
// to every topic channel.
package onboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatforum/pkg/chat"
	"chatforum/pkg/config"
	"chatforum/pkg/identity"
	"chatforum/pkg/logger"
)

type Service struct {
	backend  chat.Backend
	provider identity.Provider
	cfg      config.ForumConfig
	chanType string
	chanImg  string
}

func NewService(backend chat.Backend, provider identity.Provider, cfg config.Config) *Service {
	return &Service{
		backend:  backend,
		provider: provider,
		cfg:      cfg.Forum,
		chanType: cfg.Chat.ChannelType,
		chanImg:  cfg.Chat.ChannelImg,
	}
}

// Result reports what provisioning produced for one user.
type Result struct {
	UserID   string   `json:"user_id"`
	Token    string   `json:"token"`
	Channels []string `json:"channels"`
}

// capitalize uppercases the first byte, matching how channel display
// names are derived from slugs.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Provision runs the full onboarding flow for userID. The profile is
// fetched first so the chat record carries the user's display name and
// avatar; channel joins happen per topic and a single failed topic fails
// the whole call.
func (s *Service) Provision(ctx context.Context, userID string) (*Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}

	profile, err := s.provider.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	token, err := s.backend.CreateToken(userID)
	if err != nil {
		return nil, fmt.Errorf("mint chat token: %w", err)
	}

	if err := s.backend.UpsertUser(ctx, chat.User{
		ID:    userID,
		Name:  profile.DisplayName(),
		Image: profile.ImageURL,
	}); err != nil {
		return nil, fmt.Errorf("upsert chat user: %w", err)
	}

	if err := s.provider.UpdateMetadata(ctx, userID, map[string]any{
		"token":          token,
		"provisioned_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("stash token: %w", err)
	}

	joined := make([]string, 0, len(s.cfg.Topics))
	for _, slug := range s.cfg.Topics {
		ch := chat.Channel{
			Type:      s.chanType,
			ID:        slug,
			Name:      capitalize(slug),
			Image:     s.chanImg,
			CreatedBy: userID,
		}
		if err := s.backend.EnsureChannel(ctx, ch); err != nil {
			return nil, fmt.Errorf("ensure channel %s: %w", slug, err)
		}
		if err := s.backend.AddMembers(ctx, s.chanType, slug, []string{userID}); err != nil {
			return nil, fmt.Errorf("join channel %s: %w", slug, err)
		}
		joined = append(joined, slug)
	}

	logger.Info("user_provisioned", "user", userID, "channels", len(joined))
	return &Result{UserID: userID, Token: token, Channels: joined}, nil
}
