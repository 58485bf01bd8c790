package dynamodb

import (
	"context"
	"encoding/json"
	"time"

	"gridguardian-backend/internal/domain/graph"

	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

// DocumentReader reads every document of a collection path.
type DocumentReader interface {
	ReadCollection(ctx context.Context, path string) ([]graph.Document, error)
}

// collectionWatcher polls one collection and delivers its documents whenever
// the content changes. The first successful poll always delivers. A failure
// is reported once until the collection can be read again.
type collectionWatcher struct {
	reader   DocumentReader
	path     string
	interval time.Duration
	timeout  time.Duration
	onNext   func([]graph.Document)
	onError  func(error)
	logger   *zap.Logger

	delivered bool
	last      [32]byte
	failing   bool
	lastErr   string
}

func (w *collectionWatcher) run(ctx context.Context) {
	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *collectionWatcher) poll(ctx context.Context) {
	qctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	docs, err := w.reader.ReadCollection(qctx, w.path)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		msg := err.Error()
		if w.failing && msg == w.lastErr {
			return
		}
		w.failing = true
		w.lastErr = msg
		w.logger.Warn("Collection poll failed",
			zap.String("collection", w.path),
			zap.Error(err),
		)
		w.onError(err)
		return
	}

	sum, ok := fingerprint(docs)
	if ok && w.delivered && !w.failing && sum == w.last {
		return
	}

	w.failing = false
	w.lastErr = ""
	w.delivered = true
	w.last = sum
	w.logger.Debug("Collection changed",
		zap.String("collection", w.path),
		zap.Int("documents", len(docs)),
	)
	w.onNext(docs)
}

// fingerprint hashes the canonical JSON form of docs. Map keys are encoded in
// sorted order, so equal content hashes equally.
func fingerprint(docs []graph.Document) ([32]byte, bool) {
	data, err := json.Marshal(docs)
	if err != nil {
		return [32]byte{}, false
	}
	return blake3.Sum256(data), true
}
