package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Enqueuer publishes verified deliveries onto the orders topic. The consumer
// side is idempotent on (webhookId, shopDomain), so publishing the same
// envelope twice is harmless.
type Enqueuer struct {
	publish func(ctx context.Context, msg *gcppubsub.Message) publishResult
	logg    *logger.Logger
}

// NewEnqueuer wraps a Pub/Sub publisher handle.
func NewEnqueuer(pub *gcppubsub.Publisher, logg *logger.Logger) (*Enqueuer, error) {
	if pub == nil {
		return nil, errors.New("orders publisher is required")
	}
	return &Enqueuer{
		publish: func(ctx context.Context, msg *gcppubsub.Message) publishResult {
			return pub.Publish(ctx, msg)
		},
		logg: logg,
	}, nil
}

func newEnqueuerWithPublisher(pub publisher, logg *logger.Logger) *Enqueuer {
	return &Enqueuer{
		publish: func(ctx context.Context, msg *gcppubsub.Message) publishResult {
			return pub.Publish(ctx, msg)
		},
		logg: logg,
	}
}

// Enqueue publishes the envelope and waits for the broker ack. A context
// timeout here surfaces as an error so the caller can dead-letter the
// delivery instead of leaving it pending.
func (e *Enqueuer) Enqueue(ctx context.Context, envelope IngestEnvelope) error {
	if envelope.Version == 0 {
		envelope.Version = envelopeVersion
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal ingest envelope: %w", err)
	}

	result := e.publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"webhookId":  envelope.WebhookID,
			"shopDomain": envelope.ShopDomain,
			"topic":      envelope.Topic,
			"store":      string(envelope.Store),
		},
	})
	if result == nil {
		return errors.New("publisher returned no result")
	}

	messageID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish ingest envelope: %w", err)
	}

	if e.logg != nil {
		fields := map[string]any{
			"message_id": messageID,
			"webhook_id": envelope.WebhookID,
			"store":      envelope.Store,
		}
		e.logg.Info(e.logg.WithFields(ctx, fields), "order ingest enqueued")
	}
	return nil
}
