package sweeper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatforum/pkg/config"
	"chatforum/pkg/models"
	"chatforum/pkg/snapshot"
	"chatforum/pkg/state"
)

func TestRunImmediate(t *testing.T) {
	require.NoError(t, snapshot.Open(t.TempDir()))
	t.Cleanup(func() { _ = snapshot.Close() })

	sweepDir := t.TempDir()
	state.PathsVar.Sweeper = sweepDir
	t.Cleanup(func() { state.PathsVar.Sweeper = "" })
	SetConfig(config.SweeperConfig{Enabled: true, Cron: "0 * * * *"})

	dead := models.Snapshot{
		ChannelID: "forum-old",
		Slug:      "old",
		Messages:  []models.NormalizedMessage{{ID: "m1", Text: "stale", User: models.Author{ID: "u1", Name: "Ada"}}},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	require.NoError(t, snapshot.Save(dead, 0, 0))
	require.NoError(t, snapshot.Save(models.Snapshot{
		ChannelID: "forum-live",
		Slug:      "live",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, time.Hour, 0))

	n, err := RunImmediate()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = snapshot.GetByChannel("forum-old")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
	_, err = snapshot.GetByChannel("forum-live")
	assert.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(sweepDir, "last_run.json"))
	require.NoError(t, err)
	var rec struct {
		Evicted int `json:"evicted"`
	}
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, 1, rec.Evicted)
}

func TestRunImmediateWithoutConfig(t *testing.T) {
	storedCfg = nil
	_, err := RunImmediate()
	assert.Error(t, err)
}

func TestStartRejectsBadCron(t *testing.T) {
	state.PathsVar.Sweeper = t.TempDir()
	t.Cleanup(func() { state.PathsVar.Sweeper = "" })
	_, err := Start(t.Context(), config.SweeperConfig{Enabled: true, Cron: "not a cron"})
	assert.Error(t, err)
}
