package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Zerodha Allocator Configuration

[allocation]
# Mode used when none is given: "weight", "amount" or "qty"
default_mode = "weight"
# Decimal places used by normalize
decimals = 2
# Minimum shares every weighted row must get (0 disables the check)
min_qty_per_row = 0
# Block saving unless weights add up to 100%
require_weights_sum_to_100 = false
# Spend leftover cash one share at a time (weight mode only)
optimize_with_remaining_funds = true

[prices]
# Price source: "static" (prices from CSV files) or "kite" (live LTP)
source = "static"
# Exchange used when a row does not name one
default_exchange = "NSE"

[store]
# SQLite database for saved plans (defaults to <config dir>/allocator.db)
# path = ""

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
max_size = 20
max_backups = 5
max_age = 30
`

const credentialsTemplate = `# Zerodha Allocator Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[zerodha]
api_key = ""
access_token = ""
`

// WriteCredentialsTemplate creates credentials.toml with restricted permissions.
func WriteCredentialsTemplate(configDir string) (string, error) {
	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return "", fmt.Errorf("writing credentials template: %w", err)
	}
	return path, nil
}

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}
