package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yolodolo42/filsign/internal/chain"
	"github.com/yolodolo42/filsign/internal/fil"
)

const (
	EnvPrefix = "FILSIGN"

	KeyProviderKeystore = "keystore"
	KeyProviderVault    = "vault"

	ConfirmPrompt = "prompt"
	ConfirmAuto   = "auto"
	ConfirmDeny   = "deny"
)

// Config holds the effective filsign configuration.
type Config struct {
	Network     string        `mapstructure:"network"`
	RPC         RPCConfig     `mapstructure:"rpc"`
	DataDir     string        `mapstructure:"data_dir"`
	Account     string        `mapstructure:"account"`
	KeyProvider string        `mapstructure:"key_provider"` // "keystore" or "vault"
	Vault       VaultConfig   `mapstructure:"vault"`
	Confirm     string        `mapstructure:"confirm"` // "prompt", "auto" or "deny"
	EstimateGas bool          `mapstructure:"estimate_gas"`
	Policy      PolicyConfig  `mapstructure:"policy"`
	Journal     JournalConfig `mapstructure:"journal"`
	Log         LogConfig     `mapstructure:"log"`
}

// RPCConfig points at a Lotus node. URLs are tried in order. NetworkName, when
// set, is the name every endpoint must report.
type RPCConfig struct {
	URLs        []string `mapstructure:"urls"`
	Token       string   `mapstructure:"token"`
	NetworkName string   `mapstructure:"network_name"`
}

// VaultConfig locates a secp256k1 key stored in a Vault KV v2 engine.
type VaultConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	Mount   string `mapstructure:"mount"`
	Path    string `mapstructure:"path"`
	Field   string `mapstructure:"field"`
}

type PolicyConfig struct {
	MaxValue string   `mapstructure:"max_value"`
	AllowTo  []string `mapstructure:"allow_to"`
	DenyTo   []string `mapstructure:"deny_to"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// DefaultDataDir returns $HOME/.filsign.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".filsign"), nil
}

// SetDefaults registers default values and the environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("network", "mainnet")
	v.SetDefault("rpc.urls", []string{})
	v.SetDefault("rpc.token", "")
	v.SetDefault("rpc.network_name", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("account", "")
	v.SetDefault("key_provider", KeyProviderKeystore)
	v.SetDefault("vault.address", "http://127.0.0.1:8200")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount", "secret")
	v.SetDefault("vault.path", "")
	v.SetDefault("vault.field", "private_key")
	v.SetDefault("policy.max_value", "")
	v.SetDefault("journal.path", "")
	v.SetDefault("confirm", ConfirmPrompt)
	v.SetDefault("estimate_gas", true)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("log.debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config, filling data-dir dependent paths and the
// network's built-in endpoints, then validating enumerated settings.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if len(cfg.RPC.URLs) == 0 {
		if n, err := fil.ParseNetwork(cfg.Network); err == nil {
			cfg.RPC.URLs = chain.NetworkFor(n, nil).RPCURLs
		}
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(cfg.DataDir, "journal.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and provider-specific requirements.
func (c *Config) Validate() error {
	if _, err := fil.ParseNetwork(c.Network); err != nil {
		return err
	}
	if len(c.RPC.URLs) == 0 {
		return fmt.Errorf("rpc.urls must not be empty")
	}

	switch c.KeyProvider {
	case KeyProviderKeystore:
	case KeyProviderVault:
		if c.Vault.Address == "" || c.Vault.Path == "" {
			return fmt.Errorf("vault key provider requires vault.address and vault.path")
		}
	default:
		return fmt.Errorf("unknown key_provider: %q", c.KeyProvider)
	}

	switch c.Confirm {
	case ConfirmPrompt, ConfirmAuto, ConfirmDeny:
	default:
		return fmt.Errorf("unknown confirm mode: %q", c.Confirm)
	}

	if c.Policy.MaxValue != "" {
		if _, err := fil.ParseAmount(c.Policy.MaxValue); err != nil {
			return fmt.Errorf("policy.max_value: %w", err)
		}
	}
	return nil
}

// NetworkPrefix returns the parsed network. Call after Validate.
func (c *Config) NetworkPrefix() fil.Network {
	n, _ := fil.ParseNetwork(c.Network)
	return n
}

// KeystoreDir is where encrypted key files live.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}
