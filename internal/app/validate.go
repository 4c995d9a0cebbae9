package app

import (
	"fmt"
	"os"

	"chatforum/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	// data path must be present
	if eff.DataPath == "" {
		return fmt.Errorf("data path is empty: set --data flag, CHATFORUM_DATA_PATH env, or server.data_path in config")
	}

	// TLS cert/key presence check if one is set
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	// chat backend credentials are required: provisioning and channel
	// dispatch cannot run without them
	if eff.Config.Chat.BaseURL == "" {
		return fmt.Errorf("chat backend not configured: set chat.base_url in config or CHATFORUM_CHAT_BASE_URL")
	}
	if eff.Config.Chat.APIKey == "" || eff.Config.Chat.APISecret == "" {
		return fmt.Errorf("chat backend credentials missing: set chat.api_key and chat.api_secret")
	}

	// identity provider credentials are required for onboarding
	if eff.Config.Identity.BaseURL == "" || eff.Config.Identity.SecretKey == "" {
		return fmt.Errorf("identity provider not configured: set identity.base_url and identity.secret_key")
	}

	// generation credentials are deliberately not required here: digest
	// requests answer with a configuration error until they are set

	return nil
}
