package dynamodb

import (
	"context"

	"gridguardian-backend/internal/domain/graph"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 8

// Fetcher reads the whole graph once, without subscriptions.
type Fetcher struct {
	reader      DocumentReader
	source      *Source
	mode        graph.ReferenceMode
	concurrency int
	logger      *zap.Logger
}

// NewFetcher creates a Fetcher resolving collection paths like source.
func NewFetcher(reader DocumentReader, source *Source, mode graph.ReferenceMode, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		reader:      reader,
		source:      source,
		mode:        mode,
		concurrency: defaultFetchConcurrency,
		logger:      logger,
	}
}

// FetchGraph reads every point and then each point's neighbors. Any read
// failure aborts the fetch.
func (f *Fetcher) FetchGraph(ctx context.Context) ([]graph.Point, error) {
	docs, err := f.reader.ReadCollection(ctx, f.source.PointsPath())
	if err != nil {
		return nil, err
	}
	points := graph.BasePoints(docs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i := range points {
		i := i
		g.Go(func() error {
			neighbors, err := f.reader.ReadCollection(gctx, f.source.NeighborsPath(points[i].ID))
			if err != nil {
				return err
			}
			points[i] = points[i].WithNeighbors(graph.NeighborRefs(neighbors, f.mode))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.Info("Fetched graph",
		zap.Int("points", len(points)),
		zap.String("collection", f.source.PointsPath()),
	)
	return points, nil
}
