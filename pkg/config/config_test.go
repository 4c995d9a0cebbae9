package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	content := []byte(`server:
  address: 127.0.0.1
  port: 9090
chat:
  base_url: https://chat.example.com
  api_key: key1
  api_secret: sec1
generation:
  model: gemini-2.0-flash
  delay: 250ms
snapshots:
  ttl: 30m
  max_bytes: 64KB
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(p, content, 0o600))

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 9090, c.Server.Port)
	require.Equal(t, "https://chat.example.com", c.Chat.BaseURL)
	require.Equal(t, 250*time.Millisecond, c.Generation.Delay.Duration())
	require.Equal(t, 30*time.Minute, c.Snapshots.TTL.Duration())
	require.Equal(t, int64(64000), c.Snapshots.MaxBytes.Int64())
	require.Equal(t, "127.0.0.1:9090", c.Addr())

	// ResolveConfigPath prefers env var when flag not set
	t.Setenv("CHATFORUM_CONFIG", p)
	require.Equal(t, p, ResolveConfigPath("/nope", false))
	require.Equal(t, "/explicit", ResolveConfigPath("/explicit", true))
}

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	require.Equal(t, "messaging", c.Chat.ChannelType)
	require.Equal(t, 3, c.Generation.Candidates)
	require.Equal(t, 500*time.Millisecond, c.Generation.Delay.Duration())
	require.Equal(t, "sequential", c.Generation.Strategy)
	require.Equal(t, DefaultTopics, c.Forum.Topics)
	require.Equal(t, time.Hour, c.Snapshots.TTL.Duration())
	require.Equal(t, int64(1<<20), c.Snapshots.MaxBytes.Int64())
	require.Equal(t, "0 * * * *", c.Sweeper.Cron)
	require.Equal(t, 200, c.Limits.MaxMessages)
	require.Equal(t, 4000, c.Limits.MaxTextLen)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATFORUM_ADDR", "10.0.0.1:7070")
	t.Setenv("CHATFORUM_TOPICS", "Go, Rust")
	t.Setenv("CHATFORUM_API_BACKEND_KEYS", "bk1,bk2")

	var c Config
	used := LoadEnvOverrides(&c)
	require.True(t, used)
	require.Equal(t, "10.0.0.1", c.Server.Address)
	require.Equal(t, 7070, c.Server.Port)
	require.Equal(t, []string{"Go", "Rust"}, c.Forum.Topics)
	require.Equal(t, []string{"bk1", "bk2"}, c.Security.APIKeys.Backend)
}

func TestRuntimeKeys(t *testing.T) {
	SetRuntime(&RuntimeConfig{
		BackendKeys: map[string]struct{}{"bk": {}},
		SigningKeys: map[string]struct{}{"sk": {}},
	})
	t.Cleanup(func() { SetRuntime(nil) })

	require.Contains(t, GetBackendKeys(), "bk")
	require.Contains(t, GetSigningKeys(), "sk")

	// returned maps are copies
	GetSigningKeys()["other"] = struct{}{}
	require.NotContains(t, GetSigningKeys(), "other")
}
