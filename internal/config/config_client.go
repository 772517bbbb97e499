package config

import (
	"fmt"
	"time"
)

// ClientEnvPrefix is prepended to every client environment variable.
const ClientEnvPrefix = "SYNC_CLIENT_"

// Supported envelope sealers.
const (
	SealerHMAC   = "hmac"
	SealerAESGCM = "aesgcm"
)

// ClientConfig is the configuration of the sync client.
type ClientConfig struct {
	// ServerURL is the base URL of the sync gateway.
	ServerURL string `env:"SERVER_URL"`

	// Token is the bearer token presented to the gateway. May be empty.
	Token string `env:"TOKEN"`

	// UserID keys the rows of the local sync_state table.
	UserID string `env:"USER_ID"`

	// DBPath is the SQLite file holding the outbox, replica and cursors.
	DBPath string `env:"DB_PATH"`

	// Timeout bounds one sync round trip, retries included.
	Timeout time.Duration `env:"TIMEOUT"`

	// Retries is the number of extra attempts after a transient network
	// failure. Zero falls back to the default; use a negative value to
	// disable retries.
	Retries int `env:"RETRIES"`

	// RetryWait is the initial backoff between attempts.
	RetryWait time.Duration `env:"RETRY_WAIT"`

	// Interval is the period of the background sync job of "watch".
	Interval time.Duration `env:"INTERVAL"`

	// LogFile receives the client log. Rotated by size.
	LogFile string `env:"LOG_FILE"`

	// Sealer selects the envelope sealer: "hmac" or "aesgcm".
	Sealer string `env:"SEALER"`

	// Passphrase derives the payload key of the "aesgcm" sealer.
	Passphrase string `env:"PASSPHRASE"`

	// ChecksumKey must match the server's SYNC_CHECKSUM_KEY.
	ChecksumKey string `env:"CHECKSUM_KEY"`

	// JSONFilePath is the optional path to a JSON configuration file.
	JSONFilePath string `env:"CONFIG"`
}

// GetClientConfig builds and validates the client configuration. overrides
// carries values from command-line flags and wins over the environment; a
// JSON file named by either source wins over both.
func GetClientConfig(overrides *ClientConfig) (*ClientConfig, error) {
	envCfg := &ClientConfig{}
	if err := parseEnv(envCfg, ClientEnvPrefix); err != nil {
		return nil, err
	}

	configs := []*ClientConfig{envCfg}
	if overrides != nil {
		configs = append(configs, overrides)
	}

	path := lastNonEmpty(envCfg.JSONFilePath, overrides)
	if path != "" {
		jsonCfg, err := parseClientJSON(path)
		if err != nil {
			return nil, err
		}
		configs = append(configs, jsonCfg)
	}

	cfg, err := merge(configs...)
	if err != nil {
		return nil, fmt.Errorf("error merging configs: %w", err)
	}

	defaults := DefaultClientConfig()
	if err = applyDefaults(cfg, &defaults); err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

func lastNonEmpty(envPath string, overrides *ClientConfig) string {
	if overrides != nil && overrides.JSONFilePath != "" {
		return overrides.JSONFilePath
	}
	return envPath
}
