package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/cursor"
	"github.com/MKhiriev/go-delta-sync/internal/handler"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/metrics"
	"github.com/MKhiriev/go-delta-sync/internal/notify"
	"github.com/MKhiriev/go-delta-sync/internal/server"
	"github.com/MKhiriev/go-delta-sync/internal/service"
	"github.com/MKhiriev/go-delta-sync/internal/store"
	"github.com/MKhiriev/go-delta-sync/internal/workers"
	"github.com/MKhiriev/go-delta-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	printBuildInfo(buildInfo)

	log := logger.NewLogger("sync-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	clock := clockwork.NewRealClock()
	minter := cursor.NewMinter(clock)

	storages, err := store.NewStorages(ctx, cfg.Storage, minter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer storages.Close()

	m := metrics.New()
	hub := notify.NewHub()
	defer hub.Close()

	services := service.NewServices(storages, hub, m, cfg, buildInfo, log)

	handlers, err := handler.NewHandlers(services, hub, m, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	var probe workers.Worker
	if storages.Fallback != nil {
		storages.Fallback.OnModeChange(handlers.OnModeChange)
		storages.Fallback.OnModeChange(m.SetMode)
		handlers.OnModeChange(storages.Fallback.Mode())
		m.SetMode(storages.Fallback.Mode())

		probe = workers.NewBackendProbe(storages.Fallback, clock, cfg.Workers.ProbeInterval, log)
	} else {
		m.SetMode(storages.DeltaStore.Mode())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		workers.NewWorkers(probe).Run(ctx)
	}()

	srv.Run(ctx)
	wg.Wait()
}

func printBuildInfo(info models.AppBuildInfo) {
	fmt.Printf("Build version: %s\n", info.BuildVersion())
	fmt.Printf("Build date: %s\n", info.BuildDate())
	fmt.Printf("Build commit: %s\n", info.BuildCommit())
}
