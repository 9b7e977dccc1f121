// Package config loads blobsign configuration from an optional YAML file and
// BLOBSIGN_* environment variables.
//
// YAML example:
//
//	server:
//	  address: ":8080"
//	logging:
//	  level: info
//	  encoding: json
//	signer:
//	  s3_region: eu-west-1
//	  default_expiry: 15m
//	accounts:
//	  - provider: azureblob
//	    account: identity
//	    secret: aaaabbbb
//	accounts_file: /etc/blobsign/accounts.yaml
//
// Environment overrides use the key path with dots replaced by underscores,
// e.g. BLOBSIGN_SIGNER_S3_REGION. BLOBSIGN_STATIC_ACCOUNTS appends accounts as
// comma separated PROVIDER:ACCOUNT:SECRET entries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/forestrie/go-blobsign/signer"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BLOBSIGN"

type Config struct {
	Server       ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging      LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Signer       SignerConfig  `mapstructure:"signer" yaml:"signer"`
	Accounts     []Account     `mapstructure:"accounts" yaml:"accounts"`
	AccountsFile string        `mapstructure:"accounts_file" yaml:"accounts_file,omitempty"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// SignerConfig mirrors signer.Config.
type SignerConfig struct {
	AzureEndpoint         string        `mapstructure:"azure_endpoint" yaml:"azure_endpoint,omitempty"`
	AzureVersion          string        `mapstructure:"azure_version" yaml:"azure_version,omitempty"`
	S3Region              string        `mapstructure:"s3_region" yaml:"s3_region,omitempty"`
	S3Service             string        `mapstructure:"s3_service" yaml:"s3_service,omitempty"`
	S3Endpoint            string        `mapstructure:"s3_endpoint" yaml:"s3_endpoint,omitempty"`
	DefaultExpiry         time.Duration `mapstructure:"default_expiry" yaml:"default_expiry,omitempty"`
	DisableHeaderHoisting bool          `mapstructure:"disable_header_hoisting" yaml:"disable_header_hoisting,omitempty"`
}

// Account binds credentials to one provider.
type Account struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Account  string `mapstructure:"account" yaml:"account"`
	Secret   string `mapstructure:"secret" yaml:"secret"`
}

// accountsFile is the layout of a standalone accounts file.
type accountsFile struct {
	Accounts []Account `yaml:"accounts"`
}

// Load reads path (if non-empty) and the environment. A missing path is
// an error; an empty path means environment and defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults double as the key list AutomaticEnv consults during Unmarshal.
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "json")
	v.SetDefault("signer.azure_endpoint", signer.DefaultAzureEndpoint)
	v.SetDefault("signer.azure_version", signer.AzureAPIVersion)
	v.SetDefault("signer.s3_region", signer.DefaultS3Region)
	v.SetDefault("signer.s3_service", "s3")
	v.SetDefault("signer.s3_endpoint", "")
	v.SetDefault("signer.default_expiry", signer.DefaultExpiry.String())
	v.SetDefault("signer.disable_header_hoisting", false)
	v.SetDefault("accounts_file", "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.AccountsFile != "" {
		accounts, err := LoadAccountsFile(cfg.AccountsFile)
		if err != nil {
			return nil, err
		}
		cfg.Accounts = append(cfg.Accounts, accounts...)
	}

	if env := os.Getenv(EnvPrefix + "_STATIC_ACCOUNTS"); env != "" {
		accounts, err := ParseAccounts(env)
		if err != nil {
			return nil, fmt.Errorf("invalid %s_STATIC_ACCOUNTS: %w", EnvPrefix, err)
		}
		cfg.Accounts = append(cfg.Accounts, accounts...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadAccountsFile reads a YAML document with a top-level accounts list.
func LoadAccountsFile(path string) ([]Account, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	var f accountsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file %s: %w", path, err)
	}
	return f.Accounts, nil
}

// ParseAccounts parses comma separated PROVIDER:ACCOUNT:SECRET entries.
// The secret is everything after the second colon.
func ParseAccounts(s string) ([]Account, error) {
	var accounts []Account
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("entry %q is not PROVIDER:ACCOUNT:SECRET", redactEntry(entry))
		}
		accounts = append(accounts, Account{Provider: parts[0], Account: parts[1], Secret: parts[2]})
	}
	return accounts, nil
}

func redactEntry(entry string) string {
	parts := strings.SplitN(entry, ":", 3)
	if len(parts) == 3 {
		parts[2] = "***"
	}
	return strings.Join(parts, ":")
}

func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.validateAccounts(); err != nil {
		return fmt.Errorf("accounts config: %w", err)
	}
	engine := c.Signer.Engine()
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("signer config: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Address == "" {
		return errors.New("address is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func (c *Config) validateAccounts() error {
	seen := make(map[string]bool)
	for i, a := range c.Accounts {
		if a.Provider == "" {
			return fmt.Errorf("account %d: provider is required", i)
		}
		if a.Account == "" {
			return fmt.Errorf("account %d: account is required", i)
		}
		if a.Secret == "" {
			return fmt.Errorf("account %d (%s): secret is required", i, a.Provider)
		}
		if seen[a.Provider] {
			return fmt.Errorf("provider %s has more than one account", a.Provider)
		}
		seen[a.Provider] = true
	}
	return nil
}

// Engine converts c to the signer package's configuration.
func (c SignerConfig) Engine() signer.Config {
	return signer.Config{
		AzureEndpoint:         c.AzureEndpoint,
		AzureVersion:          c.AzureVersion,
		S3Region:              c.S3Region,
		S3Service:             c.S3Service,
		S3Endpoint:            c.S3Endpoint,
		DefaultExpiry:         c.DefaultExpiry,
		DisableHeaderHoisting: c.DisableHeaderHoisting,
	}
}

// Credentials returns the account configured for provider.
func (c *Config) Credentials(provider signer.ProviderID) (signer.Credentials, bool) {
	for _, a := range c.Accounts {
		if a.Provider == string(provider) {
			return signer.Credentials{Account: a.Account, Secret: a.Secret}, true
		}
	}
	return signer.Credentials{}, false
}
