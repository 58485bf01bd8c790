// Package di wires the service graph with google/wire.
package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gridguardian-backend/internal/application/services"
	"gridguardian-backend/internal/auth"
	"gridguardian-backend/internal/config"
	"gridguardian-backend/internal/domain/graph"
	"gridguardian-backend/internal/graphsync"
	"gridguardian-backend/internal/infrastructure/cache"
	ddb "gridguardian-backend/internal/infrastructure/dynamodb"
	"gridguardian-backend/internal/infrastructure/messaging/eventbridge"
	"gridguardian-backend/internal/infrastructure/observability"
	"gridguardian-backend/internal/interfaces/http/rest"
	"gridguardian-backend/internal/interfaces/websocket"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const metricsNamespace = "grid"

// Server is the long-running API process.
type Server struct {
	Config    *config.Config
	Handler   http.Handler
	Sync      *services.GraphSyncService
	Hub       *websocket.Hub
	Collector *observability.Collector
}

// Reader serves the read API from snapshots and one-shot fetches.
type Reader struct {
	Config  *config.Config
	Handler http.Handler
	Reader  *services.SnapshotGraphReader
	Fetcher *ddb.Fetcher
	Source  *ddb.Source
	Mode    graph.ReferenceMode
}

func provideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(loadCtx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

func provideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		o.RetryMaxAttempts = 3
		o.RetryMode = aws.RetryModeAdaptive
		if cfg.AWS.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.DynamoDBEndpoint)
		}
	})
}

func provideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg, func(o *awseventbridge.Options) {
		o.RetryMaxAttempts = 3
	})
}

func provideBreaker(cfg *config.Config, logger *zap.Logger) *gobreaker.CircuitBreaker {
	cb := cfg.CircuitBreaker
	return ddb.NewBreaker(ddb.BreakerConfig{
		Name:         "dynamodb-" + cfg.Graph.TableName,
		MaxRequests:  cb.MaxRequests,
		Interval:     cb.Interval,
		Timeout:      cb.Timeout,
		MinRequests:  cb.MinRequests,
		FailureRatio: cb.FailureRatio,
	}, logger)
}

func provideCollector() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

func provideDocumentReader(client *awsdynamodb.Client, cfg *config.Config, breaker *gobreaker.CircuitBreaker, collector *observability.Collector, logger *zap.Logger) ddb.DocumentReader {
	reader := ddb.NewCollectionReader(client, cfg.Graph.TableName, breaker, logger)
	return observability.NewMeteredReader(reader, collector)
}

func provideReferenceMode(cfg *config.Config) (graph.ReferenceMode, error) {
	return graph.ParseReferenceMode(cfg.Graph.NeighborReference)
}

func provideSource(reader ddb.DocumentReader, cfg *config.Config, logger *zap.Logger) (*ddb.Source, func(), error) {
	segments, err := cfg.PointsSegments()
	if err != nil {
		return nil, nil, err
	}
	source := ddb.NewSource(reader, ddb.SourceConfig{
		PointsPath:          ddb.CollectionPath(segments...),
		NeighborsCollection: cfg.Graph.NeighborsCollection,
		PollInterval:        cfg.Graph.PollInterval,
		QueryTimeout:        cfg.Graph.QueryTimeout,
	}, logger)
	return source, source.Close, nil
}

func provideFetcher(reader ddb.DocumentReader, source *ddb.Source, mode graph.ReferenceMode, logger *zap.Logger) *ddb.Fetcher {
	return ddb.NewFetcher(reader, source, mode, logger)
}

// provideStorage selects the snapshot storage backend.
func provideStorage(cfg *config.Config, client *awsdynamodb.Client, breaker *gobreaker.CircuitBreaker, logger *zap.Logger) (cache.Storage, func(), error) {
	noop := func() {}
	switch cfg.Cache.Backend {
	case cache.BackendFile:
		storage, err := cache.NewFileStorage(cfg.Cache.Dir)
		return storage, noop, err
	case cache.BackendSQLite:
		storage, err := cache.OpenSQLiteStorage(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() {
			if err := storage.Close(); err != nil {
				logger.Warn("Failed to close snapshot database", zap.Error(err))
			}
		}, nil
	case cache.BackendDynamoDB:
		table := cfg.Cache.TableName
		if table == "" {
			table = cfg.Graph.TableName
		}
		return ddb.NewItemStore(client, table, breaker), noop, nil
	default:
		return cache.NewMemoryStorage(cfg.Cache.MaxItems, logger), noop, nil
	}
}

func provideSnapshotCache(storage cache.Storage, cfg *config.Config, logger *zap.Logger) *cache.SnapshotCache {
	return cache.NewSnapshotCache(storage, cfg.Cache.Key, cfg.Cache.TTL, logger)
}

func provideHub(collector *observability.Collector, logger *zap.Logger) (*websocket.Hub, func()) {
	hub := websocket.NewHub(collector.WebSocketClients, logger)
	return hub, hub.Close
}

// provideValidator returns nil when auth is disabled.
func provideValidator(cfg *config.Config) (*auth.Validator, error) {
	if !cfg.Security.EnableAuth {
		return nil, nil
	}
	return auth.NewValidator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)
}

func providePublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) services.EventPublisher {
	if !cfg.Events.Enabled {
		return eventbridge.NopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.Events.EventBusName, cfg.Events.Source, logger)
}

func providePointStore(source *ddb.Source, mode graph.ReferenceMode, collector *observability.Collector, logger *zap.Logger) *graphsync.PointStore {
	return graphsync.NewPointStore(source,
		graphsync.WithLogger(logger.Named("graphsync")),
		graphsync.WithReferenceMode(mode),
		graphsync.WithObserver(collector),
	)
}

func provideGraphSyncService(
	store *graphsync.PointStore,
	snapshots *cache.SnapshotCache,
	publisher services.EventPublisher,
	hub *websocket.Hub,
	collector *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *services.GraphSyncService {
	return services.NewGraphSyncService(store, snapshots, publisher, hub, collector, services.SyncConfig{
		SaveInterval:    cfg.Cache.SaveInterval,
		PublishInterval: cfg.Events.PublishInterval,
	}, logger)
}

func provideWebSocketServer(hub *websocket.Hub, validator *auth.Validator, sync *services.GraphSyncService, cfg *config.Config, logger *zap.Logger) *websocket.Server {
	wsCfg := websocket.DefaultServerConfig()
	wsCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	return websocket.NewServer(hub, validator, sync.Current, wsCfg, logger)
}

func routerConfig(cfg *config.Config) rest.RouterConfig {
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	return rest.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ServiceName:    serviceName,
		Map:            cfg.Map,
	}
}

func provideServerHandler(sync *services.GraphSyncService, ws *websocket.Server, collector *observability.Collector, validator *auth.Validator, cfg *config.Config, logger *zap.Logger) http.Handler {
	return rest.NewRouter(sync, ws.HandleWebSocket, collector, validator, routerConfig(cfg), logger).Setup()
}

func provideSnapshotGraphReader(snapshots *cache.SnapshotCache, fetcher *ddb.Fetcher, mode graph.ReferenceMode, collector *observability.Collector, logger *zap.Logger) *services.SnapshotGraphReader {
	return services.NewSnapshotGraphReader(snapshots, fetcher, mode, collector, logger)
}

func provideReaderHandler(reader *services.SnapshotGraphReader, collector *observability.Collector, validator *auth.Validator, cfg *config.Config, logger *zap.Logger) http.Handler {
	return rest.NewRouter(reader, nil, collector, validator, routerConfig(cfg), logger).Setup()
}
