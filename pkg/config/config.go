package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds derived runtime values that other packages may query
// at runtime (populated during startup by the app after merging env+file).
type RuntimeConfig struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetBackendKeys returns a copy of configured backend keys.
func GetBackendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.BackendKeys == nil {
		return out
	}
	for k := range runtimeCfg.BackendKeys {
		out[k] = struct{}{}
	}
	return out
}

// GetSigningKeys returns a copy of configured signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Chat.ChannelType == "" {
		c.Chat.ChannelType = "messaging"
	}
	if c.Generation.Candidates <= 0 {
		c.Generation.Candidates = 3
	}
	if c.Generation.Delay.Duration() <= 0 {
		c.Generation.Delay = Duration(500 * time.Millisecond)
	}
	if c.Generation.Strategy == "" {
		c.Generation.Strategy = "sequential"
	}
	if c.Generation.MaxConcurrent <= 0 {
		c.Generation.MaxConcurrent = 3
	}
	if len(c.Forum.Topics) == 0 {
		c.Forum.Topics = append([]string{}, DefaultTopics...)
	}
	if c.Snapshots.TTL.Duration() <= 0 {
		c.Snapshots.TTL = Duration(time.Hour)
	}
	if c.Snapshots.MaxBytes <= 0 {
		c.Snapshots.MaxBytes = SizeBytes(1 << 20)
	}
	if c.Sweeper.Cron == "" {
		c.Sweeper.Cron = "0 * * * *"
	}
	if c.Limits.MaxMessages <= 0 {
		c.Limits.MaxMessages = 200
	}
	if c.Limits.MaxTextLen <= 0 {
		c.Limits.MaxTextLen = 4000
	}
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and the environment variable `CHATFORUM_CONFIG` when the flag was
// not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CHATFORUM_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
