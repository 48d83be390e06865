package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/orderdeskhq/orderdesk-backend/internal/normalizer"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

type fakeOrderWriter struct {
	orders []*models.Order
	err    error
}

func (f *fakeOrderWriter) Upsert(_ context.Context, order *models.Order) error {
	f.orders = append(f.orders, order)
	return f.err
}

func newTestConsumer(repo orderWriter) *Consumer {
	return &Consumer{
		repo:       repo,
		normalizer: normalizer.New(),
		logg:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func envelopeMessage(t *testing.T, envelope IngestEnvelope) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"webhookId":  envelope.WebhookID,
			"shopDomain": envelope.ShopDomain,
		},
	}
}

func validEnvelope() IngestEnvelope {
	return IngestEnvelope{
		Version:    1,
		WebhookID:  "wh-1",
		ShopDomain: "bannos.myshopify.com",
		Topic:      "orders/create",
		Store:      enums.StoreBannos,
		Body: []byte(`{
			"id": 5551234,
			"admin_graphql_api_id": "gid://shopify/Order/5551234",
			"order_number": 12345,
			"note_attributes": [
				{"name": "Local Delivery Date and Time", "value": "2025-01-30"}
			],
			"shipping_address": {"name": "Jordan Smith"},
			"line_items": [{"title": "Chocolate Cake", "quantity": 1}]
		}`),
	}
}

func TestConsumer_PersistsOrder(t *testing.T) {
	repo := &fakeOrderWriter{}
	consumer := newTestConsumer(repo)

	result := consumer.process(context.Background(), envelopeMessage(t, validEnvelope()))
	if result.nack {
		t.Fatal("expected ack")
	}
	if len(repo.orders) != 1 {
		t.Fatalf("expected one upsert, got %d", len(repo.orders))
	}
	if repo.orders[0].ID != "bannos-12345" {
		t.Fatalf("unexpected order id %q", repo.orders[0].ID)
	}
}

func TestConsumer_AcksUndecodableMessage(t *testing.T) {
	repo := &fakeOrderWriter{}
	consumer := newTestConsumer(repo)

	result := consumer.process(context.Background(), &gcppubsub.Message{Data: []byte("not json")})
	if result.nack {
		t.Fatal("garbage message must be acked, not retried")
	}
	if len(repo.orders) != 0 {
		t.Fatal("garbage message must not reach the repository")
	}
}

func TestConsumer_AcksUnknownStore(t *testing.T) {
	repo := &fakeOrderWriter{}
	consumer := newTestConsumer(repo)

	envelope := validEnvelope()
	envelope.Store = enums.Store("mystery")
	result := consumer.process(context.Background(), envelopeMessage(t, envelope))
	if result.nack {
		t.Fatal("unknown store must be acked")
	}
	if len(repo.orders) != 0 {
		t.Fatal("unknown store must not reach the repository")
	}
}

func TestConsumer_NacksTransientDBError(t *testing.T) {
	repo := &fakeOrderWriter{err: errors.New("connection refused")}
	consumer := newTestConsumer(repo)

	result := consumer.process(context.Background(), envelopeMessage(t, validEnvelope()))
	if !result.nack {
		t.Fatal("transient db error must be nacked for redelivery")
	}
}

func TestConsumer_AcksPermanentDBError(t *testing.T) {
	repo := &fakeOrderWriter{err: errors.New("value too long for column")}
	consumer := newTestConsumer(repo)

	result := consumer.process(context.Background(), envelopeMessage(t, validEnvelope()))
	if result.nack {
		t.Fatal("permanent db error must not be retried")
	}
}
