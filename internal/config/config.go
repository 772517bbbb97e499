// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"net"
	"os"
	"strconv"
	"time"
)

// ServerEnvPrefix is prepended to every server environment variable.
const ServerEnvPrefix = "SYNC_"

// StructuredConfig is the top-level configuration of the sync server. It is
// populated by merging values from environment variables, command-line
// flags, and an optional JSON file.
type StructuredConfig struct {
	// App holds token and envelope settings.
	App App

	// Storage holds configuration of the durable delta store.
	Storage Storage

	// Server holds network, timeout and rate limit settings of the HTTP and
	// gRPC servers.
	Server Server

	// Workers holds configuration for background worker processes.
	Workers Workers

	// JSONFilePath is the optional path to a JSON configuration file.
	// Env: SYNC_CONFIG
	JSONFilePath string `env:"CONFIG"`
}

// App holds secrets and protocol parameters.
type App struct {
	// JWTSecret is the HS256 key used to sign and verify bearer tokens.
	// Env: SYNC_JWT_SECRET
	JWTSecret string `env:"JWT_SECRET"`

	// TokenIssuer is the "iss" claim required on every bearer token.
	// Env: SYNC_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is the lifetime of tokens minted by the server.
	// Env: SYNC_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// ChecksumKey keys the HMAC used for delta checksums. Clients and server
	// must agree on it.
	// Env: SYNC_CHECKSUM_KEY
	ChecksumKey string `env:"CHECKSUM_KEY"`

	// VerifySignatures makes the server reject uploads whose envelope
	// signature does not match the bearer token.
	// Env: SYNC_VERIFY_SIGNATURES
	VerifySignatures bool `env:"VERIFY_SIGNATURES"`
}

// Storage groups the configuration of storage backends.
type Storage struct {
	DB DB
}

// DB holds connection settings for the PostgreSQL backend.
type DB struct {
	// DSN is the PostgreSQL connection string. When empty the server keeps
	// deltas in memory.
	// Env: SYNC_DATABASE_URL
	DSN string `env:"DATABASE_URL"`
}

// Server holds settings for the inbound transport layer.
type Server struct {
	// Host is the interface the HTTP server binds to. Empty means all.
	// Env: SYNC_HOST
	Host string `env:"HOST"`

	// Port is the HTTP port.
	// Env: SYNC_PORT
	Port int `env:"PORT"`

	// GRPCAddress is the host:port of the gRPC health server. The gRPC
	// server is not started when empty.
	// Env: SYNC_GRPC_ADDRESS
	GRPCAddress string `env:"GRPC_ADDRESS"`

	// RequestTimeout bounds the handling of a single request.
	// Env: SYNC_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// RateLimit is the number of requests one client IP may make per
	// RateWindow.
	// Env: SYNC_RATE_LIMIT
	RateLimit int `env:"RATE_LIMIT"`

	// Env: SYNC_RATE_WINDOW
	RateWindow time.Duration `env:"RATE_WINDOW"`
}

// HTTPAddress returns the listen address in host:port form.
func (s Server) HTTPAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// ProbeInterval is how often the durable backend is pinged while the
	// server runs degraded.
	// Env: SYNC_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}

// GetStructuredConfig loads, merges, defaults and validates the server
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(os.Args[1:]).
		withJSON().
		build()
}
