package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatforum/pkg/config"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(config.IdentityConfig{BaseURL: srv.URL, SecretKey: "sk-test"})
	require.NoError(t, err)
	return c
}

func TestGetUser(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user-1", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Profile{
			ID: "user-1", FirstName: "Ada", LastName: "Lovelace",
			ImageURL: "https://img.example/u1.png",
		})
	})

	p, err := c.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.DisplayName())
	assert.Equal(t, "https://img.example/u1.png", p.ImageURL)
}

func TestUpdateMetadata(t *testing.T) {
	var got map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/users/user-1/metadata", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	})

	err := c.UpdateMetadata(context.Background(), "user-1", map[string]any{"provisioned": true})
	require.NoError(t, err)
	meta, ok := got["public_metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, meta["provisioned"])
}

func TestGetUserErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	_, err := c.GetUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestDisplayNameFallbacks(t *testing.T) {
	assert.Equal(t, "Ada", Profile{ID: "u", FirstName: "Ada"}.DisplayName())
	assert.Equal(t, "Lovelace", Profile{ID: "u", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "u", Profile{ID: "u"}.DisplayName())
}
