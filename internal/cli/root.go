// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package cli implements the command line of the sync client.
//
// Every command that talks to the gateway builds the same stack: config,
// rotating file logger, local replica, resty adapter, sealer and the
// [client.Engine]. Output goes to the command's writer; diagnostics go to
// the log file.
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/models"
)

// RootOptions holds the persistent flags. Non-zero values override the
// environment; a JSON file named by --config overrides both.
type RootOptions struct {
	Overrides config.ClientConfig
}

// NewRootCommand builds the client command tree.
func NewRootCommand(buildInfo models.AppBuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "sync-client",
		Short:         "Offline-first delta sync client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.Overrides.JSONFilePath, "config", "c", "", "path to a JSON config file")
	f.StringVar(&opts.Overrides.ServerURL, "server", "", "base URL of the sync gateway")
	f.StringVar(&opts.Overrides.Token, "token", "", "bearer token")
	f.StringVar(&opts.Overrides.UserID, "user", "", "local user id")
	f.StringVar(&opts.Overrides.DBPath, "db", "", `replica file, ":memory:" keeps it in memory`)
	f.StringVar(&opts.Overrides.LogFile, "log-file", "", "client log file")
	f.StringVar(&opts.Overrides.Sealer, "sealer", "", "envelope sealer: hmac|aesgcm")
	f.StringVar(&opts.Overrides.Passphrase, "passphrase", "", "passphrase of the aesgcm sealer")
	f.StringVar(&opts.Overrides.ChecksumKey, "checksum-key", "", "checksum key shared with the server")
	f.DurationVar(&opts.Overrides.Timeout, "timeout", 0, "bound of one round trip")
	f.IntVar(&opts.Overrides.Retries, "retries", 0, "extra attempts after a network failure, negative disables")
	f.DurationVar(&opts.Overrides.Interval, "interval", 0, "period of the watch sync job")

	cmd.AddCommand(
		newSyncCommand(opts),
		newDownloadCommand(opts),
		newStatusCommand(opts),
		newStageCommand(opts),
		newConflictsCommand(opts),
		newWatchCommand(opts),
		newTokenCommand(),
		newVersionCommand(buildInfo),
	)

	return cmd
}

// defaultTokenTTL is the lifetime of tokens minted by the "token" command.
const defaultTokenTTL = 24 * time.Hour
