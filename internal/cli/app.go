package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-delta-sync/internal/adapter"
	"github.com/MKhiriev/go-delta-sync/internal/client"
	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/crypto"
	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/store"
)

// app is the client stack shared by the gateway commands.
type app struct {
	cfg    *config.ClientConfig
	log    *logger.Logger
	local  store.ClientStore
	server adapter.ServerAdapter
	engine *client.Engine
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	overrides := opts.Overrides
	cfg, err := config.GetClientConfig(&overrides)
	if err != nil {
		return nil, err
	}

	log := logger.NewClientLogger("sync-client", cfg.LogFile)

	sealer, err := newSealer(cfg)
	if err != nil {
		return nil, err
	}

	server, err := adapter.NewHTTPServerAdapter(*cfg, log)
	if err != nil {
		return nil, err
	}

	local, err := store.NewClientStorages(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("open replica: %w", err)
	}

	engine := client.NewEngine(server, local, envelope.NewCodec(cfg.ChecksumKey), sealer,
		client.EngineConfig{UserID: cfg.UserID, Timeout: cfg.Timeout}, log)
	if err = engine.LoadState(ctx); err != nil {
		local.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, local: local, server: server, engine: engine}, nil
}

func (a *app) Close() error {
	return a.local.Close()
}

// newSealer picks the envelope sealer. The aesgcm key salt is the user id,
// so every device of one user derives the same key from the passphrase.
func newSealer(cfg *config.ClientConfig) (crypto.Sealer, error) {
	switch cfg.Sealer {
	case config.SealerHMAC, "":
		return crypto.NewHMACSealer(), nil
	case config.SealerAESGCM:
		return crypto.NewAESGCMSealer(cfg.Passphrase, []byte(cfg.UserID))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSealer, cfg.Sealer)
	}
}

// runWithApp opens the stack, runs fn and closes the replica.
func runWithApp(ctx context.Context, opts *RootOptions, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	return fn(ctx, a)
}
