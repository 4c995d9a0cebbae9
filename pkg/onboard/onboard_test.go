package onboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatforum/pkg/chat"
	"chatforum/pkg/config"
	"chatforum/pkg/identity"
	"chatforum/pkg/models"
)

type fakeBackend struct {
	upserted   []chat.User
	channels   []chat.Channel
	membership map[string][]string
	failSlug   string
}

func (f *fakeBackend) CreateToken(userID string) (string, error) { return "tok-" + userID, nil }
func (f *fakeBackend) UpsertUser(_ context.Context, u chat.User) error {
	f.upserted = append(f.upserted, u)
	return nil
}
func (f *fakeBackend) EnsureChannel(_ context.Context, ch chat.Channel) error {
	if ch.ID == f.failSlug {
		return errors.New("backend rejected channel")
	}
	f.channels = append(f.channels, ch)
	return nil
}
func (f *fakeBackend) AddMembers(_ context.Context, _, channelID string, userIDs []string) error {
	if f.membership == nil {
		f.membership = map[string][]string{}
	}
	f.membership[channelID] = append(f.membership[channelID], userIDs...)
	return nil
}
func (f *fakeBackend) Messages(context.Context, string, string, int) ([]models.RawMessage, error) {
	return nil, nil
}
func (f *fakeBackend) SendMessage(_ context.Context, _, _ string, m models.RawMessage) (models.RawMessage, error) {
	return m, nil
}
func (f *fakeBackend) Health(context.Context) error { return nil }

type fakeProvider struct {
	profile identity.Profile
	meta    map[string]any
	getErr  error
}

func (f *fakeProvider) GetUser(context.Context, string) (identity.Profile, error) {
	return f.profile, f.getErr
}
func (f *fakeProvider) UpdateMetadata(_ context.Context, _ string, meta map[string]any) error {
	f.meta = meta
	return nil
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.ApplyDefaults()
	return cfg
}

func TestProvisionFullFlow(t *testing.T) {
	backend := &fakeBackend{}
	provider := &fakeProvider{profile: identity.Profile{
		ID: "user-1", FirstName: "Ada", LastName: "Lovelace", ImageURL: "img",
	}}
	svc := NewService(backend, provider, testConfig())

	res, err := svc.Provision(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-user-1", res.Token)
	assert.Equal(t, config.DefaultTopics, res.Channels)

	require.Len(t, backend.upserted, 1)
	assert.Equal(t, "Ada Lovelace", backend.upserted[0].Name)

	require.Len(t, backend.channels, len(config.DefaultTopics))
	assert.Equal(t, "Python", backend.channels[0].Name)
	assert.Equal(t, "messaging", backend.channels[0].Type)
	assert.Equal(t, "user-1", backend.channels[0].CreatedBy)

	for _, slug := range config.DefaultTopics {
		assert.Equal(t, []string{"user-1"}, backend.membership[slug])
	}

	assert.Equal(t, "tok-user-1", provider.meta["token"])
	assert.NotEmpty(t, provider.meta["provisioned_at"])
}

func TestProvisionProfileFailure(t *testing.T) {
	svc := NewService(&fakeBackend{}, &fakeProvider{getErr: errors.New("unauthorized")}, testConfig())
	_, err := svc.Provision(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch profile")
}

func TestProvisionChannelFailure(t *testing.T) {
	backend := &fakeBackend{failSlug: "Java"}
	svc := NewService(backend, &fakeProvider{}, testConfig())
	_, err := svc.Provision(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure channel Java")
}

func TestProvisionEmptyUser(t *testing.T) {
	svc := NewService(&fakeBackend{}, &fakeProvider{}, testConfig())
	_, err := svc.Provision(context.Background(), "")
	require.Error(t, err)
}
