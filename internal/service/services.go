package service

import (
	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/store"
	"github.com/MKhiriev/go-delta-sync/models"
)

type Services struct {
	AuthService    AuthService
	SyncService    SyncService
	HealthService  HealthService
	AppInfoService AppInfoService
}

func NewServices(
	storages *store.Storages,
	publisher ChangePublisher,
	recorder SyncRecorder,
	cfg *config.StructuredConfig,
	buildInfo models.AppBuildInfo,
	logger *logger.Logger,
) *Services {
	codec := envelope.NewCodec(cfg.App.ChecksumKey)

	return &Services{
		AuthService: NewAuthService(cfg.App, logger),
		SyncService: NewSyncService(storages.DeltaStore, codec, logger,
			WithPublisher(publisher),
			WithRecorder(recorder),
			WithSignatureVerification(cfg.App.VerifySignatures),
		),
		HealthService:  NewHealthService(storages.DeltaStore),
		AppInfoService: NewAppInfoService(buildInfo, logger),
	}
}
