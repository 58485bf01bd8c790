//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"gridguardian-backend/internal/config"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// CommonSet provides the clients and adapters shared by every process.
var CommonSet = wire.NewSet(
	provideAWSConfig,
	provideDynamoDBClient,
	provideBreaker,
	provideCollector,
	provideDocumentReader,
	provideReferenceMode,
	provideSource,
	provideStorage,
	provideSnapshotCache,
	provideValidator,
)

// ServerSet provides the live sync server.
var ServerSet = wire.NewSet(
	CommonSet,
	provideEventBridgeClient,
	providePublisher,
	provideHub,
	providePointStore,
	provideGraphSyncService,
	provideWebSocketServer,
	provideServerHandler,
	wire.Struct(new(Server), "*"),
)

// ReaderSet provides the snapshot-backed reader.
var ReaderSet = wire.NewSet(
	CommonSet,
	provideFetcher,
	provideSnapshotGraphReader,
	provideReaderHandler,
	wire.Struct(new(Reader), "*"),
)

// InitializeServer builds the live sync server.
func InitializeServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, func(), error) {
	wire.Build(ServerSet)
	return nil, nil, nil
}

// InitializeReader builds the snapshot-backed reader.
func InitializeReader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Reader, func(), error) {
	wire.Build(ReaderSet)
	return nil, nil, nil
}
