package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// DefaultProviderPath is used when neither a path nor CF_PROVIDER_PATH is set.
const DefaultProviderPath = "configs/cloudflare.yaml"

// ProviderConfig holds the DNS provider type, the default account, and
// provider-specific connection settings (credentials included).
type ProviderConfig struct {
	Provider  string            `yaml:"provider"`
	AccountID string            `yaml:"account_id"`
	Settings  map[string]string `yaml:"settings"`
}

// LoadProviderConfig reads the provider configuration from path, falling back
// to the CF_PROVIDER_PATH environment variable and then DefaultProviderPath.
func LoadProviderConfig(path string) (*ProviderConfig, error) {
	if path == "" {
		path = os.Getenv("CF_PROVIDER_PATH")
	}
	if path == "" {
		path = DefaultProviderPath
	}
	return LoadProviderConfigFromPath(path)
}

// LoadProviderConfigFromPath reads the provider configuration from the
// given file path.
func LoadProviderConfigFromPath(path string) (*ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider config file: %w", err)
	}

	var cfg ProviderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing provider config file: %w", err)
	}

	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider config: missing required field 'provider'")
	}

	// Expand ${ENV_VAR} references so credentials stay out of the file.
	cfg.AccountID = os.ExpandEnv(cfg.AccountID)
	for k, v := range cfg.Settings {
		cfg.Settings[k] = os.ExpandEnv(v)
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]string{}
	}

	return &cfg, nil
}
