package config

import "time"

// DefaultServerConfig returns the values used for every server setting that
// no source provided.
func DefaultServerConfig() StructuredConfig {
	return StructuredConfig{
		App: App{
			JWTSecret:     "local-dev-secret",
			TokenIssuer:   "go-delta-sync",
			TokenDuration: 24 * time.Hour,
			ChecksumKey:   "sync-local",
		},
		Server: Server{
			Port:           4100,
			RequestTimeout: 30 * time.Second,
			RateLimit:      100,
			RateWindow:     time.Minute,
		},
		Workers: Workers{
			ProbeInterval: 15 * time.Second,
		},
	}
}

// DefaultClientConfig returns the values used for every client setting that
// no source provided.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL:   "http://localhost:4100",
		UserID:      "local",
		DBPath:      "sync.db",
		Timeout:     15 * time.Second,
		Retries:     3,
		RetryWait:   200 * time.Millisecond,
		Interval:    5 * time.Minute,
		LogFile:     "sync-client.log",
		Sealer:      SealerHMAC,
		ChecksumKey: "sync-local",
	}
}
