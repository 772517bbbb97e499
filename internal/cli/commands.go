package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/service"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
	"github.com/MKhiriev/go-delta-sync/models"
)

const conflictsLimit = 20

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload the outbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				res, err := a.engine.TriggerSync(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSyncResult(res))
				return nil
			})
		},
	}
}

func newDownloadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Fetch and merge remote changes since the stored cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				res, err := a.engine.TriggerDownload(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDownloadResult(res))
				return nil
			})
		},
	}
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				pending, err := a.local.Pending(ctx)
				if err != nil {
					return err
				}
				states, err := a.local.States(ctx, a.cfg.UserID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatus(a.engine.Status(), tokenOwner(a.server.Token()), len(pending), states))
				return nil
			})
		},
	}
}

func newConflictsCommand(opts *RootOptions) *cobra.Command {
	limit := conflictsLimit

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List the most recent conflicts reported by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				conflicts, err := a.local.Conflicts(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderConflicts(conflicts))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", conflictsLimit, "number of conflicts to show")

	return cmd
}

func newStageCommand(opts *RootOptions) *cobra.Command {
	var id, version string

	cmd := &cobra.Command{
		Use:   "stage <entity> <payload-json>",
		Short: "Queue a changed entity for the next sync",
		Long: `Queue a changed entity for the next sync.

The payload must be a JSON object. Its "id" is taken from --id, then from
the payload; a new UUIDv7 is generated when both are missing. The version
defaults to the current time in milliseconds.

Example:
  sync-client stage transaction '{"amount":12.5,"currency":"EUR"}'
  sync-client stage budget '{"id":"b1","limit":300}' --version 7`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, entityID, err := preparePayload([]byte(args[1]), id, utils.NewUUIDGenerator().Generate)
			if err != nil {
				return err
			}
			if version == "" {
				version = strconv.FormatInt(time.Now().UnixMilli(), 10)
			}

			return runWithApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				d := models.Delta{Entity: args[0], Version: version, Payload: payload}
				if err := a.engine.Stage(ctx, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "staged %s/%s at version %s\n", args[0], entityID, version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "entity id, overrides payload.id")
	cmd.Flags().StringVar(&version, "version", "", "entity version")

	return cmd
}

// tokenOwner labels the replica with the token subject. The gateway is the
// one verifying the token, so a malformed one is only reported here.
func tokenOwner(token string) string {
	if token == "" {
		return "anonymous"
	}
	owner, err := utils.ParseOwnerUnverified(token)
	if err != nil || owner == "" {
		return "invalid token"
	}
	return owner
}

// preparePayload makes sure raw is a JSON object carrying an id and returns
// it with that id. Numbers keep their literal form.
func preparePayload(raw []byte, id string, newID func() string) (json.RawMessage, string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, "", ErrInvalidPayload
	}

	if id != "" {
		obj["id"] = id
	}
	if existing := (models.Delta{Payload: raw}).EntityID(); id == "" && existing != "" {
		id = existing
	}
	if id == "" {
		id = newID()
		obj["id"] = id
	}

	payload, err := json.Marshal(obj)
	if err != nil {
		return nil, "", err
	}
	return payload, id, nil
}

func newTokenCommand() *cobra.Command {
	defaults := config.DefaultServerConfig().App
	appCfg := config.App{}
	var owner string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a development gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == "" {
				return ErrEmptyOwner
			}
			if appCfg.TokenDuration <= 0 {
				appCfg.TokenDuration = defaultTokenTTL
			}

			token, err := service.NewAuthService(appCfg, logger.Nop()).CreateToken(cmd.Context(), owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.SignedString)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&owner, "owner", "", "subject of the token")
	f.StringVar(&appCfg.JWTSecret, "secret", defaults.JWTSecret, "signing secret of the gateway")
	f.StringVar(&appCfg.TokenIssuer, "issuer", defaults.TokenIssuer, "issuer expected by the gateway")
	f.DurationVar(&appCfg.TokenDuration, "ttl", defaultTokenTTL, "token lifetime")

	return cmd
}

func newVersionCommand(info models.AppBuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), renderVersion(info))
		},
	}
}
