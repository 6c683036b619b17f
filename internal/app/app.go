package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/spacesedan/sentiserve/config"
	"github.com/spacesedan/sentiserve/internal/api"
	"github.com/spacesedan/sentiserve/internal/clients"
	"github.com/spacesedan/sentiserve/internal/db"
	"github.com/spacesedan/sentiserve/internal/history"
	"github.com/spacesedan/sentiserve/internal/logging"
	"github.com/spacesedan/sentiserve/internal/modelcache"
	"github.com/spacesedan/sentiserve/internal/notify"
	"github.com/spacesedan/sentiserve/internal/service"
)

// App is everything one process needs to serve requests.
type App struct {
	Config   *config.Config
	Handlers *api.Handlers
	Models   *modelcache.Cache

	closers []func()
}

// Bootstrap loads the .env file for APP_ENV, decodes the configuration and
// installs the logger.
func Bootstrap() (*config.Config, error) {
	config.LoadEnv(config.AppEnv())

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.InitLogger(cfg.LogLevel)
	return cfg, nil
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	awsCfg, err := clients.GetAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	table, err := a.table(cfg, clients.GetDynamoDBClient(awsCfg))
	if err != nil {
		return nil, err
	}
	store := db.NewResultStore(table)

	var modelClient modelcache.S3API
	if cfg.Model.Bucket != "" {
		modelClient = clients.GetS3Client(awsCfg)
	}
	models, err := modelcache.NewFromConfig(cfg.Model, modelClient)
	if err != nil {
		return nil, err
	}
	a.Models = models
	a.onClose(func() {
		if err := models.Close(); err != nil {
			slog.Warn("[App] Failed to release model", slog.String("error", err.Error()))
		}
	})

	notifier, err := a.notifier(cfg.Notify, awsCfg)
	if err != nil {
		return nil, err
	}

	cache := a.predictionCache(ctx, cfg.Cache, clients.NewSecretResolver(clients.GetSecretsManagerClient(awsCfg)))
	objects := clients.NewS3ObjectReader(clients.GetS3Client(awsCfg))

	a.Handlers = api.NewHandlers(
		service.NewAnalyzer(models, store, cache),
		service.NewBatchService(models, store, objects, notifier, cfg.Model.Bucket),
		service.NewHistoryService(history.NewReader(store)),
	)

	slog.Info("[App] Initialization complete",
		slog.String("environment", cfg.Env),
		slog.String("store", cfg.Store.Backend),
		slog.String("model_backend", cfg.Model.Backend),
		slog.String("notify", cfg.Notify.Backend),
		slog.Bool("prediction_cache", cache != nil))
	return a, nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *App) table(cfg *config.Config, dynamo db.DynamoAPI) (db.Table, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendDynamoDB:
		return db.NewDynamoTable(dynamo, cfg.Store.Table), nil
	case config.StoreBackendSQLite:
		t, err := db.NewSQLiteTable(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { t.Close() })
		return t, nil
	default:
		return nil, nil
	}
}

func (a *App) notifier(cfg config.NotifyConfig, awsCfg aws.Config) (notify.Notifier, error) {
	switch cfg.Backend {
	case config.NotifyBackendSNS:
		return notify.NewSNSNotifier(clients.GetSNSClient(awsCfg), cfg.SNSTopicARN), nil
	case config.NotifyBackendKafka:
		producer, err := notify.NewKafkaProducer(cfg.KafkaBroker)
		if err != nil {
			return nil, fmt.Errorf("[App] failed to start kafka notifier: %w", err)
		}
		n := notify.NewKafkaNotifier(producer, cfg.KafkaTopic)
		a.onClose(n.Close)
		return n, nil
	default:
		return notify.NopNotifier{}, nil
	}
}

// predictionCache returns nil when caching is off or Valkey is unreachable;
// requests then go straight to the model.
func (a *App) predictionCache(ctx context.Context, cfg config.CacheConfig, secrets *clients.SecretResolver) service.PredictionCache {
	if !cfg.Enabled() {
		return nil
	}

	password, err := clients.ValkeyPassword(ctx, secrets, cfg.PasswordSecretID, cfg.Password)
	if err != nil {
		slog.Warn("[App] Prediction cache disabled", slog.String("error", err.Error()))
		return nil
	}

	vc, err := clients.NewValkeyClient(cfg, password)
	if err != nil {
		slog.Warn("[App] Prediction cache disabled", slog.String("error", err.Error()))
		return nil
	}
	a.onClose(vc.Close)
	return vc
}
