// Package config provides configuration loading, merging, and validation
// facilities for the sync server and the sync client.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Environment variables (SYNC_* for the server, SYNC_CLIENT_* for the client)
//  2. Command-line flags
//  3. JSON config file (SYNC_CONFIG / -c for the server, SYNC_CLIENT_CONFIG / --config for the client)
//
// Zero fields left after merging are filled from the defaults, then the
// result is validated.
//
// The main entry points are [GetStructuredConfig] for the server and
// [GetClientConfig] for the client.
package config
