package observability

import (
	"context"
	"time"

	"gridguardian-backend/internal/domain/graph"
)

// CollectionReader reads every document of a collection path.
type CollectionReader interface {
	ReadCollection(ctx context.Context, path string) ([]graph.Document, error)
}

// MeteredReader records every collection read on a Collector.
type MeteredReader struct {
	next      CollectionReader
	collector *Collector
}

// NewMeteredReader wraps next.
func NewMeteredReader(next CollectionReader, collector *Collector) *MeteredReader {
	return &MeteredReader{next: next, collector: collector}
}

// ReadCollection delegates to the wrapped reader.
func (r *MeteredReader) ReadCollection(ctx context.Context, path string) ([]graph.Document, error) {
	start := time.Now()
	docs, err := r.next.ReadCollection(ctx, path)
	r.collector.ObserveDB("read_collection", time.Since(start), err)
	return docs, err
}
