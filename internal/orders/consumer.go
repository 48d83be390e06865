package orders

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/orderdeskhq/orderdesk-backend/internal/normalizer"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

type orderWriter interface {
	Upsert(ctx context.Context, order *models.Order) error
}

// Consumer turns ingest envelopes from the orders subscription into
// persisted order rows. Normalization is a pure function of the envelope
// body, so redelivered messages regenerate the same composite id and the
// upsert stays idempotent.
type Consumer struct {
	repo         orderWriter
	subscription *pubsub.Subscriber
	normalizer   *normalizer.Normalizer
	logg         *logger.Logger
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(repo orderWriter, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, errors.New("orders repository is required")
	}
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		normalizer:   normalizer.New(),
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	fields := map[string]any{
		"message_id":  msg.ID,
		"webhook_id":  msg.Attributes["webhookId"],
		"shop_domain": msg.Attributes["shopDomain"],
	}
	logCtx := c.logg.WithFields(ctx, fields)

	var envelope IngestEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode ingest envelope", err)
		return processResult{ack: true}
	}
	if !envelope.Store.IsValid() {
		c.logg.Warn(logCtx, "skipping envelope with unknown store")
		return processResult{ack: true}
	}

	order, issues := c.normalizer.Normalize(envelope.Body, envelope.Store)
	if len(issues) > 0 {
		// Issues here mean the ingest-side validation and this binary
		// disagree; surface it, do not retry a payload that cannot change.
		c.logg.Warn(c.logg.WithField(logCtx, "issues", issues), "envelope failed normalization")
		return processResult{ack: true}
	}

	if err := c.repo.Upsert(logCtx, order); err != nil {
		c.logg.Error(logCtx, "order upsert failed", err)
		if isTransientDBError(err) {
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}

	c.logg.Info(c.logg.WithField(logCtx, "order_id", order.ID), "order persisted")
	return processResult{ack: true}
}

func isTransientDBError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"connection", "timeout", "deadlock", "too many clients"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
