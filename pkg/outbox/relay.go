package outbox

import (
	"context"
	"time"

	"github.com/nazeru/materials-marketplace-go/pkg/logging"
	"github.com/nazeru/materials-marketplace-go/pkg/metrics"
)

// Source is the store side of the outbox.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

type Relay struct {
	Source    Source
	Publisher Publisher
	Interval  time.Duration
	Batch     int
	Metrics   *metrics.OrderMetrics
	Log       logging.Logger
}

// Run drains the outbox every Interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.Log.Error("outbox_drain", err, logging.Fields{})
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Drain publishes one batch in id order and returns how many records were sent. It stops at the
// first publish failure so records are never delivered out of order.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	batch := r.Batch
	if batch <= 0 {
		batch = 100
	}
	recs, err := r.Source.FetchPending(ctx, batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range recs {
		if err := r.Publisher.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			r.count("error")
			return sent, err
		}
		if err := r.Source.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		r.count("ok")
		r.Log.Log(logging.Fields{EventID: rec.EventID, OrderID: rec.Key, Step: "outbox_publish", Status: "sent"})
		sent++
	}
	return sent, nil
}

func (r *Relay) count(result string) {
	if r.Metrics != nil {
		r.Metrics.OutboxSends.WithLabelValues(result).Inc()
	}
}
