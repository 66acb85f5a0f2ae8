// Package config provides configuration management for the assistant.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	Market      MarketConfig    `mapstructure:"market"`
	Assistant   AssistantConfig `mapstructure:"assistant"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MarketConfig holds market-data configuration.
type MarketConfig struct {
	Stocks        []string `mapstructure:"stocks"`
	Cryptos       []string `mapstructure:"cryptos"`
	CryptoMarket  string   `mapstructure:"crypto_market"`
	RefreshCron   string   `mapstructure:"refresh_cron"`
	RetentionDays int      `mapstructure:"retention_days"`
}

// AssistantConfig holds LLM assistant configuration.
type AssistantConfig struct {
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	ContextTurns   int    `mapstructure:"context_turns"`
	RetrievalK     int    `mapstructure:"retrieval_k"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI  OpenAICredentials  `mapstructure:"openai"`
	Vantage VantageCredentials `mapstructure:"vantage"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// VantageCredentials holds Alpha Vantage API credentials.
type VantageCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/finsight"
	}
	return filepath.Join(home, ".config", "finsight")
}

// DataDir returns the directory holding the SQLite databases.
func DataDir() string {
	if dir := os.Getenv("FINSIGHT_DB_DIR"); dir != "" {
		return dir
	}
	return DefaultConfigDir()
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("market.stocks", []string{"AAPL", "MSFT", "JPM"})
	v.SetDefault("market.cryptos", []string{"BTC", "ETH"})
	v.SetDefault("market.crypto_market", "USD")
	v.SetDefault("market.refresh_cron", "0 0 18 * * 1-5")
	v.SetDefault("market.retention_days", 90)
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("assistant.embedding_model", "text-embedding-3-small")
	v.SetDefault("assistant.context_turns", 10)
	v.SetDefault("assistant.retrieval_k", 5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("VANTAGE_API_KEY"); v != "" {
		cfg.Credentials.Vantage.APIKey = v
	}
	if v := os.Getenv("FINSIGHT_MODEL"); v != "" {
		cfg.Assistant.Model = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Market.RetentionDays < 0 {
		return fmt.Errorf("retention_days must be non-negative")
	}
	if c.Assistant.ContextTurns < 0 {
		return fmt.Errorf("context_turns must be non-negative")
	}
	if c.Assistant.RetrievalK <= 0 {
		return fmt.Errorf("retrieval_k must be positive")
	}
	return nil
}

// Symbols returns the full list of tracked symbols, cryptos suffixed with
// the quote market (e.g. BTC-USD).
func (c *Config) Symbols() []string {
	symbols := make([]string, 0, len(c.Market.Stocks)+len(c.Market.Cryptos))
	symbols = append(symbols, c.Market.Stocks...)
	for _, crypto := range c.Market.Cryptos {
		symbols = append(symbols, crypto+"-"+c.Market.CryptoMarket)
	}
	return symbols
}
