package main

import (
	"context"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	membus "questforge/internal/adapter/bus/memory"
	redisbus "questforge/internal/adapter/bus/redis"
	httpadapter "questforge/internal/adapter/http"
	metricsinmem "questforge/internal/adapter/metrics/inmemory"
	openainarrator "questforge/internal/adapter/narrator/openai"
	templatenarrator "questforge/internal/adapter/narrator/template"
	filerepo "questforge/internal/adapter/repo/file"
	gormrepo "questforge/internal/adapter/repo/gorm"
	memrepo "questforge/internal/adapter/repo/memory"
	"questforge/internal/adapter/ws"
	"questforge/internal/app/action"
	"questforge/internal/app/broadcast"
	"questforge/internal/app/ports"
	"questforge/internal/app/rotation"
	"questforge/internal/app/snapshot"
	"questforge/internal/app/store"
	"questforge/internal/config"
	"questforge/internal/domain/quest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	logger := buildLogger(cfg.LogLevel)

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	logger = logger.With().Str("instance_id", instanceID).Logger()

	ctx := context.Background()

	mirror, handoffs := mustBuildStores(cfg, logger)
	bus := mustBuildBus(ctx, cfg, logger)

	stateStore := store.New(quest.DefaultCatalog(), mirror, logger)
	if err := stateStore.Warm(ctx); err != nil {
		logger.Warn().Err(err).Msg("snapshot warm-up failed, starting cold")
	}

	kpi := metricsinmem.NewRecorder()
	hub := ws.NewHub(logger)
	broadcaster := &broadcast.Broadcaster{
		InstanceID: instanceID,
		Bus:        bus,
		Gateway:    hub,
		Presence:   broadcast.NewTracker(cfg.PresenceTTL),
		Metrics:    kpi,
		Log:        logger,
	}
	hub.OnConnect = func(playerID string) {
		broadcaster.OnClientConnect(ctx, playerID)
	}
	hub.OnDisconnect = func(playerID string, remaining int) {
		broadcaster.OnClientDisconnect(ctx, playerID, remaining)
	}

	scheduler := rotation.NewScheduler(rotation.DefaultPhases())
	scheduler.Publisher = broadcaster
	scheduler.Handoffs = handoffs
	scheduler.Metrics = kpi
	scheduler.Log = logger

	h := httpadapter.Handler{
		ActionUC: action.UseCase{
			Store:     stateStore,
			Narrator:  buildNarrator(cfg),
			Publisher: broadcaster,
			Metrics:   kpi,
		},
		SnapshotUC: snapshot.UseCase{Store: stateStore},
		Scheduler:  scheduler,
		Handoffs:   handoffs,
		Hub:        hub,
		KPI:        kpiProvider{kpi},
		Log:        logger,
	}

	go func() {
		if err := broadcaster.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("broadcaster stopped")
		}
	}()

	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(s)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("questforge engine listening")
	s.Spin()
}

func buildLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func mustBuildStores(cfg config.Config, logger zerolog.Logger) (ports.SnapshotStore, ports.HandoffLog) {
	if cfg.PostgresDSN != "" {
		db, err := gormrepo.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("open postgres")
		}
		if err := gormrepo.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("migrate mirror tables")
		}
		return gormrepo.NewSnapshotRepo(db), gormrepo.NewHandoffRepo(db)
	}

	fileStore, err := filerepo.NewStore(cfg.SnapshotPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.SnapshotPath).Msg("open snapshot file")
	}
	return fileStore, memrepo.NewStore()
}

func mustBuildBus(ctx context.Context, cfg config.Config, logger zerolog.Logger) ports.EventBus {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("no redis configured, using in-process event bus")
		return membus.New()
	}
	bus, err := redisbus.Open(ctx, cfg.RedisAddr, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
	}
	return bus
}

func buildNarrator(cfg config.Config) ports.Narrator {
	if cfg.OpenAIAPIKey == "" {
		return templatenarrator.Narrator{}
	}
	return openainarrator.New(openainarrator.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
	})
}

type kpiProvider struct {
	recorder *metricsinmem.Recorder
}

func (p kpiProvider) SnapshotAny() any {
	return p.recorder.Snapshot()
}
