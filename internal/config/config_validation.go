// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"net/url"
)

// validate checks that the final merged [StructuredConfig] satisfies all
// server invariants before it is used at startup.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.JWTSecret == "" || cfg.App.ChecksumKey == "" {
		return fmt.Errorf("%w: jwt secret and checksum key are required", ErrInvalidAppConfigs)
	}
	if cfg.App.TokenDuration <= 0 {
		return fmt.Errorf("%w: token duration must be positive", ErrInvalidAppConfigs)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidServerConfigs, cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidServerConfigs)
	}
	if cfg.Server.RateLimit <= 0 || cfg.Server.RateWindow <= 0 {
		return fmt.Errorf("%w: rate limit and window must be positive", ErrInvalidServerConfigs)
	}

	if cfg.Workers.ProbeInterval <= 0 {
		return fmt.Errorf("%w: probe interval must be positive", ErrInvalidWorkerConfigs)
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server url %q must be an absolute http(s) URL", ErrInvalidAdapterConfigs, cfg.ServerURL)
	}
	if cfg.Timeout <= 0 || cfg.RetryWait <= 0 {
		return fmt.Errorf("%w: timeout and retry wait must be positive", ErrInvalidAdapterConfigs)
	}

	if cfg.DBPath == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Interval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	switch cfg.Sealer {
	case SealerHMAC:
	case SealerAESGCM:
		if cfg.Passphrase == "" {
			return fmt.Errorf("%w: the aesgcm sealer needs a passphrase", ErrInvalidAppConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown sealer %q", ErrInvalidAppConfigs, cfg.Sealer)
	}

	return nil
}
