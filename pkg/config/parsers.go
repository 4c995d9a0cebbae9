package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	Data   string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged view of flags, config file and
// environment that the app runs with.
type EffectiveConfigResult struct {
	Config   *Config
	Addr     string
	DataPath string
	Source   string // "flags", "config", or "env"
}

// ParseConfigFlags parses command-line flags and returns them as a Flags struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dataPtr := flag.String("data", "./.chatforum", "data directory (snapshots, state)")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, Data: *dataPtr, Config: *cfgPtr, Set: setFlags}
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("CHATFORUM_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("CHATFORUM_DATA_PATH"); v != "" {
		envUsed = true
		cfg.Server.DataPath = v
	}

	if v := os.Getenv("CHATFORUM_CHAT_BASE_URL"); v != "" {
		envUsed = true
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("CHATFORUM_CHAT_API_KEY"); v != "" {
		envUsed = true
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("CHATFORUM_CHAT_API_SECRET"); v != "" {
		envUsed = true
		cfg.Chat.APISecret = v
	}
	if v := os.Getenv("CHATFORUM_IDENTITY_BASE_URL"); v != "" {
		envUsed = true
		cfg.Identity.BaseURL = v
	}
	if v := os.Getenv("CHATFORUM_IDENTITY_SECRET_KEY"); v != "" {
		envUsed = true
		cfg.Identity.SecretKey = v
	}
	if v := os.Getenv("CHATFORUM_GENERATION_BASE_URL"); v != "" {
		envUsed = true
		cfg.Generation.BaseURL = v
	}
	if v := os.Getenv("CHATFORUM_GENERATION_API_KEY"); v != "" {
		envUsed = true
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("CHATFORUM_GENERATION_MODEL"); v != "" {
		envUsed = true
		cfg.Generation.Model = v
	}
	if v := os.Getenv("CHATFORUM_TOPICS"); v != "" {
		envUsed = true
		cfg.Forum.Topics = parseList(v)
	}

	if v := os.Getenv("CHATFORUM_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("CHATFORUM_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("CHATFORUM_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("CHATFORUM_IP_WHITELIST"); v != "" {
		envUsed = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("CHATFORUM_API_BACKEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := os.Getenv("CHATFORUM_API_FRONTEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Frontend = parseList(v)
	}
	if v := os.Getenv("CHATFORUM_API_ADMIN_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Admin = parseList(v)
	}
	if c := os.Getenv("CHATFORUM_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("CHATFORUM_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}
	return envUsed
}

// LoadEffective loads config from flags + file + env and resolves the
// effective listen address and data path. Flags explicitly set win over
// env and config for addr and data path.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	fromFile := err == nil
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	cfg.ApplyDefaults()

	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
	}
	dataPath := cfg.Server.DataPath
	if dataPath == "" {
		dataPath = flags.Data
	}
	if flags.Set["data"] {
		dataPath = flags.Data
	}

	source := "flags"
	switch {
	case fromFile:
		source = "config"
	case envUsed:
		source = "env"
	}
	return EffectiveConfigResult{Config: cfg, Addr: addr, DataPath: dataPath, Source: source}, nil
}
