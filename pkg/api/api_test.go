package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatforum/pkg/api/handlers"
	"chatforum/pkg/chat"
	"chatforum/pkg/config"
	"chatforum/pkg/digest"
	"chatforum/pkg/identity"
	"chatforum/pkg/models"
	"chatforum/pkg/onboard"
	"chatforum/pkg/snapshot"
)

type stubTextGen struct {
	fn func(prompt string) (string, error)
}

func (s *stubTextGen) Generate(_ context.Context, prompt string) (string, error) {
	if s.fn != nil {
		return s.fn(prompt)
	}
	return "generated reply", nil
}

type stubBackend struct {
	sent     []models.RawMessage
	messages []models.RawMessage
}

func (s *stubBackend) CreateToken(userID string) (string, error) { return "tok-" + userID, nil }
func (s *stubBackend) UpsertUser(context.Context, chat.User) error {
	return nil
}
func (s *stubBackend) EnsureChannel(context.Context, chat.Channel) error { return nil }
func (s *stubBackend) AddMembers(context.Context, string, string, []string) error {
	return nil
}
func (s *stubBackend) Messages(context.Context, string, string, int) ([]models.RawMessage, error) {
	return s.messages, nil
}
func (s *stubBackend) SendMessage(_ context.Context, _, _ string, m models.RawMessage) (models.RawMessage, error) {
	s.sent = append(s.sent, m)
	return m, nil
}
func (s *stubBackend) Health(context.Context) error { return nil }

type stubProvider struct {
	meta map[string]any
}

func (s *stubProvider) GetUser(_ context.Context, id string) (identity.Profile, error) {
	return identity.Profile{ID: id, FirstName: "Ada"}, nil
}
func (s *stubProvider) UpdateMetadata(_ context.Context, _ string, meta map[string]any) error {
	s.meta = meta
	return nil
}

func testRouter(t *testing.T, tg digest.TextGenerator, configured bool) (http.Handler, *stubBackend) {
	t.Helper()
	require.NoError(t, snapshot.Open(t.TempDir()))
	t.Cleanup(func() { _ = snapshot.Close() })

	var cfg config.Config
	cfg.ApplyDefaults()

	gen := digest.NewGenerator(tg, func(transcript, userName string, option, total int) string {
		return fmt.Sprintf("%s|%d", userName, option)
	}, digest.GeneratorConfig{Candidates: 3, Delay: time.Microsecond})
	builder := digest.NewBuilder(gen, func() bool { return configured })

	backend := &stubBackend{}
	deps := handlers.Deps{
		Builder:      builder,
		Backend:      backend,
		Onboard:      onboard.NewService(backend, &stubProvider{}, cfg),
		ChannelType:  cfg.Chat.ChannelType,
		Topics:       cfg.Forum.Topics,
		MessageLimit: 100,
		SnapshotTTL:  time.Hour,
		SnapshotMax:  1 << 20,
	}
	return NewRouter(deps), backend
}

func postJSON(h http.Handler, path string, body any, role string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Role-Name", role)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func digestBody(msgs []map[string]any) map[string]any {
	return map[string]any{
		"messages":  msgs,
		"channelId": "c1",
		"userId":    "u1",
		"slug":      "Python",
		"timestamp": "2026-08-30T12:00:00Z",
	}
}

func msg(id, userID, userName, text string) map[string]any {
	return map[string]any{
		"id":   id,
		"text": text,
		"user": map[string]any{"id": userID, "name": userName},
	}
}

func TestDigestMissingFields(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	body := digestBody(nil)
	delete(body, "slug")
	rr := postJSON(h, "/v1/digest", body, "backend")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Missing required fields: channelId, userId, or slug", out["error"])
}

func TestDigestNotConfigured(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, false)
	rr := postJSON(h, "/v1/digest", digestBody([]map[string]any{
		msg("m1", "u1", "Ada", "hi"),
		msg("m2", "u1", "Ada", "how are you"),
	}), "backend")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "AI service not configured", out["error"])
}

func TestDigestEmptyBatch(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	rr := postJSON(h, "/v1/digest", digestBody([]map[string]any{}), "backend")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			MessageCount int            `json:"messageCount"`
			AIResponses  map[string]any `json:"aiResponses"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "No messages to process", out.Message)
	assert.Equal(t, 0, out.Data.MessageCount)
	assert.Equal(t, []any{"No messages available for AI analysis."}, out.Data.AIResponses["general"])
}

func TestDigestTwoAuthors(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	rr := postJSON(h, "/v1/digest", digestBody([]map[string]any{
		msg("m1", "u1", "Ada", "hi"),
		msg("m2", "u2", "Bob", "hello"),
	}), "backend")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Data struct {
			AIResponses map[string]models.UserSuggestions `json:"aiResponses"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Data.AIResponses, 2)
	assert.Len(t, out.Data.AIResponses["u1"].Responses, 3)
	assert.Len(t, out.Data.AIResponses["u2"].Responses, 3)
	assert.Equal(t, "Ada", out.Data.AIResponses["u1"].UserName)
}

func TestDigestCandidatePlaceholder(t *testing.T) {
	var n int
	tg := &stubTextGen{fn: func(string) (string, error) {
		n++
		if n == 2 {
			return "", errors.New("upstream hiccup")
		}
		return "fine", nil
	}}
	h, _ := testRouter(t, tg, true)
	rr := postJSON(h, "/v1/digest", digestBody([]map[string]any{
		msg("m1", "u1", "Ada", "hi"),
	}), "backend")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Data struct {
			AIResponses map[string]models.UserSuggestions `json:"aiResponses"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	resp := out.Data.AIResponses["u1"].Responses
	require.Len(t, resp, 3)
	assert.Equal(t, "Response 2 temporarily unavailable", resp[1])
	assert.Equal(t, "fine", resp[0])
}

func TestDigestBatchFailure(t *testing.T) {
	tg := &stubTextGen{fn: func(string) (string, error) {
		return "", errors.New("quota exhausted")
	}}
	h, _ := testRouter(t, tg, true)
	rr := postJSON(h, "/v1/digest", digestBody([]map[string]any{
		msg("m1", "u1", "Ada", "hi"),
	}), "backend")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			AIResponses struct {
				Error *models.GenerationFailure `json:"error"`
			} `json:"aiResponses"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Success)
	require.NotNil(t, out.Data.AIResponses.Error)
	assert.Equal(t, "AI service temporarily unavailable", out.Data.AIResponses.Error.Message)
	assert.Contains(t, out.Data.AIResponses.Error.Details, "quota exhausted")
}

func TestDigestReadBack(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	rr := postJSON(h, "/v1/digest", digestBody([]map[string]any{
		msg("m1", "u1", "Ada", "hi"),
		msg("m2", "u2", "Bob", ""),
	}), "backend")
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/digest?channelId=c1", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			ChannelID     string                     `json:"channelId"`
			Slug          string                     `json:"slug"`
			Messages      []models.NormalizedMessage `json:"messages"`
			TotalMessages int                        `json:"totalMessages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "c1", out.Data.ChannelID)
	assert.Equal(t, "Python", out.Data.Slug)
	// blank-text message was filtered during normalization
	require.Equal(t, 1, out.Data.TotalMessages)
	assert.Equal(t, "hi", out.Data.Messages[0].Text)

	// slug lookup resolves to the same snapshot
	req = httptest.NewRequest(http.MethodGet, "/v1/digest?slug=Python", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestDigestReadBackRequiresKey(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	req := httptest.NewRequest(http.MethodGet, "/v1/digest", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "Either channelId or slug is required", out["error"])
}

func TestDigestReadBackEmpty(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	req := httptest.NewRequest(http.MethodGet, "/v1/digest?channelId=never-posted", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Data struct {
			TotalMessages int                        `json:"totalMessages"`
			Messages      []models.NormalizedMessage `json:"messages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Zero(t, out.Data.TotalMessages)
	assert.NotNil(t, out.Data.Messages)
}

func TestProvisionUser(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	rr := postJSON(h, "/v1/users", map[string]any{
		"data": map[string]any{"id": "user-7"},
	}, "backend")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			UserID   string   `json:"user_id"`
			Token    string   `json:"token"`
			Channels []string `json:"channels"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "user-7", out.Data.UserID)
	assert.Equal(t, "tok-user-7", out.Data.Token)
	assert.Equal(t, config.DefaultTopics, out.Data.Channels)
}

func TestListChannels(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	req := httptest.NewRequest(http.MethodGet, "/v1/channels", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Channels []struct {
			Slug string `json:"slug"`
			Type string `json:"type"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Channels, len(config.DefaultTopics))
	assert.Equal(t, "Python", out.Channels[0].Slug)
	assert.Equal(t, "messaging", out.Channels[0].Type)
}

func TestSendChannelMessage(t *testing.T) {
	h, backend := testRouter(t, &stubTextGen{}, true)
	rr := postJSON(h, "/v1/channels/Python/messages", map[string]any{
		"text":   "count me in",
		"userId": "u1",
	}, "backend")
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, backend.sent, 1)
	assert.Equal(t, "count me in", backend.sent[0].Text)
	require.NotNil(t, backend.sent[0].User)
	assert.Equal(t, "u1", backend.sent[0].User.ID)
	assert.NotEmpty(t, backend.sent[0].ID)
}

func TestSendChannelMessageRejectsBlank(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	rr := postJSON(h, "/v1/channels/Python/messages", map[string]any{
		"text":   "   ",
		"userId": "u1",
	}, "backend")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignEndpoint(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	b, _ := json.Marshal(map[string]string{"userId": "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/_sign", bytes.NewReader(b))
	req.Header.Set("X-Role-Name", "backend")
	req.Header.Set("X-API-Key", "backend-key")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "user-1", out["userId"])
	assert.Len(t, out["signature"], 64)
}

func TestSignEndpointFrontendForbidden(t *testing.T) {
	h, _ := testRouter(t, &stubTextGen{}, true)
	rr := postJSON(h, "/v1/_sign", map[string]string{"userId": "user-1"}, "frontend")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
