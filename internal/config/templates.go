package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# FinSight Configuration

[server]
host = "127.0.0.1"
port = 8080

[market]
# Tracked stock symbols
stocks = ["AAPL", "MSFT", "JPM"]
# Tracked crypto symbols (quoted in crypto_market)
cryptos = ["BTC", "ETH"]
crypto_market = "USD"
# Cron spec (with seconds) for scheduled data refresh
refresh_cron = "0 0 18 * * 1-5"
# Market records older than this many days are pruned
retention_days = 90

[assistant]
# LLM model for chat and query extraction
model = "gpt-4o-mini"
# Embedding model for document retrieval
embedding_model = "text-embedding-3-small"
# Number of recent conversation turns included as context
context_turns = 10
# Number of documents retrieved per query
retrieval_k = 5

[logging]
level = "info"
console = true
file = true
`

const credentialsTemplate = `# FinSight Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[openai]
api_key = ""

[vantage]
api_key = ""
`

// createTemplateConfig writes a default config.toml so the first run works
// out of the box; defaults are applied in-process for this run.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
