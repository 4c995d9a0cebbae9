package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chat       ChatConfig       `yaml:"chat"`
	Identity   IdentityConfig   `yaml:"identity"`
	Generation GenerationConfig `yaml:"generation"`
	Forum      ForumConfig      `yaml:"forum"`
	Security   SecurityConfig   `yaml:"security"`
	Logging    LoggingConfig    `yaml:"logging"`
	Snapshots  SnapshotConfig   `yaml:"snapshots"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Limits     LimitsConfig     `yaml:"limits"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address  string    `yaml:"address"`
	Port     int       `yaml:"port"`
	DataPath string    `yaml:"data_path"`
	TLS      TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ChatConfig holds credentials and endpoint for the hosted chat backend.
type ChatConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	ChannelType string `yaml:"channel_type"` // defaults to "messaging"
	ChannelImg  string `yaml:"channel_image"`
}

// IdentityConfig holds credentials for the hosted identity provider.
type IdentityConfig struct {
	BaseURL   string `yaml:"base_url"`
	SecretKey string `yaml:"secret_key"`
}

// GenerationConfig holds the text-generation endpoint settings. An empty
// APIKey means the generation backend is not configured and digest
// requests fail with a configuration error.
type GenerationConfig struct {
	BaseURL       string   `yaml:"base_url"`
	APIKey        string   `yaml:"api_key"`
	Model         string   `yaml:"model"`
	Candidates    int      `yaml:"candidates"`      // replies per author, default 3
	Delay         Duration `yaml:"delay"`           // inter-request throttle, default 500ms
	Strategy      string   `yaml:"strategy"`        // "sequential" (default) or "concurrent"
	MaxConcurrent int      `yaml:"max_concurrent"`  // bound for the concurrent strategy
	MaxTokens     int      `yaml:"max_tokens"`      // per-candidate completion cap
}

// Configured reports whether the generation backend has credentials.
func (g GenerationConfig) Configured() bool { return strings.TrimSpace(g.APIKey) != "" }

// ForumConfig lists the topic channels provisioned for every new user.
type ForumConfig struct {
	Topics []string `yaml:"topics"`
}

// DefaultTopics are the channels created when none are configured.
var DefaultTopics = []string{
	"Python",
	"JavaScript",
	"Java",
	"Data-Science",
	"Cloud-Computing",
	"Cybersecurity",
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
		Admin    []string `yaml:"admin"`
	} `yaml:"api_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SnapshotConfig controls the last-digest snapshot store.
type SnapshotConfig struct {
	TTL      Duration  `yaml:"ttl"`       // snapshot lifetime, default 1h
	MaxBytes SizeBytes `yaml:"max_bytes"` // per-snapshot size cap, default 1MB
}

// SweeperConfig holds configuration for the snapshot TTL sweeper.
type SweeperConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// LimitsConfig bounds incoming digest and dispatch payloads.
type LimitsConfig struct {
	MaxMessages int `yaml:"max_messages"`
	MaxTextLen  int `yaml:"max_text_len"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
