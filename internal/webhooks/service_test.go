package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

type fakeEventStore struct {
	claims      int
	claimOK     bool
	claimErr    error
	outcomes    []enums.WebhookStatus
	notes       []string
	outcomeErr  error
	lastWebhook string
}

func (f *fakeEventStore) Claim(_ context.Context, webhookID, _, _ string) (bool, error) {
	f.claims++
	f.lastWebhook = webhookID
	return f.claimOK, f.claimErr
}

func (f *fakeEventStore) MarkOutcome(_ context.Context, _, _ string, status enums.WebhookStatus, note string) error {
	f.outcomes = append(f.outcomes, status)
	f.notes = append(f.notes, note)
	return f.outcomeErr
}

type fakeDeadLetterSink struct {
	entries []models.WebhookDeadLetter
	err     error
}

func (f *fakeDeadLetterSink) Insert(_ context.Context, entry models.WebhookDeadLetter) error {
	f.entries = append(f.entries, entry)
	return f.err
}

type fakeEnqueuer struct {
	envelopes []orders.IngestEnvelope
	err       error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, envelope orders.IngestEnvelope) error {
	f.envelopes = append(f.envelopes, envelope)
	return f.err
}

type fakeGuard struct {
	seen    bool
	err     error
	deletes int
}

func (f *fakeGuard) CheckAndMark(context.Context, string, string) (bool, error) {
	return f.seen, f.err
}

func (f *fakeGuard) Delete(context.Context, string, string) error {
	f.deletes++
	return nil
}

func signedDelivery(t *testing.T, secret string) Delivery {
	t.Helper()
	body := []byte(`{
		"id": 5551234,
		"admin_graphql_api_id": "gid://shopify/Order/5551234",
		"order_number": 12345,
		"note_attributes": [
			{"name": "Local Delivery Date and Time", "value": "2025-01-30"}
		],
		"shipping_address": {"name": "Jordan Smith"},
		"line_items": [{"title": "Chocolate Cake", "quantity": 1}]
	}`)
	return Delivery{
		WebhookID:  "wh-1",
		ShopDomain: "bannos.myshopify.com",
		Topic:      "orders/create",
		Signature:  signPayload(body, secret),
		Body:       body,
	}
}

func newTestService(t *testing.T, events *fakeEventStore, sink *fakeDeadLetterSink, enq *fakeEnqueuer, guard duplicateChecker) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Resolver: NewSecretResolver(config.WebhooksConfig{
			BannosSecret:        "bannos-secret",
			FlourlaneSecret:     "flourlane-secret",
			BannosShopDomain:    "bannos.myshopify.com",
			FlourlaneShopDomain: "flourlane.myshopify.com",
		}),
		Guard:       guard,
		Events:      events,
		DeadLetters: sink,
		Enqueuer:    enq,
	})
	require.NoError(t, err)
	return svc
}

func TestService_ProcessHappyPath(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, nil)

	result := svc.Process(context.Background(), signedDelivery(t, "bannos-secret"))

	assert.Equal(t, OutcomeOK, result.Outcome)
	assert.Equal(t, enums.StoreBannos, result.Store)
	require.Len(t, enq.envelopes, 1)
	assert.Equal(t, "wh-1", enq.envelopes[0].WebhookID)
	assert.Equal(t, enums.StoreBannos, enq.envelopes[0].Store)
	require.Len(t, events.outcomes, 1)
	assert.Equal(t, enums.WebhookStatusOK, events.outcomes[0])
	assert.Equal(t, "bannos-12345", events.notes[0])
	assert.Empty(t, sink.entries)
}

func TestService_MissingMetadata(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, nil)

	result := svc.Process(context.Background(), Delivery{ShopDomain: "bannos.myshopify.com"})
	assert.Equal(t, OutcomeBadRequest, result.Outcome)

	result = svc.Process(context.Background(), Delivery{WebhookID: "wh-1"})
	assert.Equal(t, OutcomeBadRequest, result.Outcome)

	assert.Equal(t, 0, events.claims, "metadata failures must not claim")
	require.Len(t, sink.entries, 2)
	assert.Equal(t, enums.DeadLetterReasonMissingWebhookID, sink.entries[0].Reason)
	assert.Equal(t, enums.DeadLetterReasonMissingShop, sink.entries[1].Reason)
}

func TestService_GuardShortCircuitsDuplicates(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, &fakeGuard{seen: true})

	result := svc.Process(context.Background(), signedDelivery(t, "bannos-secret"))

	assert.Equal(t, OutcomeDuplicate, result.Outcome)
	assert.Equal(t, 0, events.claims)
	assert.Empty(t, enq.envelopes)
}

func TestService_GuardFailureFallsThroughToClaim(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, &fakeGuard{err: errors.New("redis down")})

	result := svc.Process(context.Background(), signedDelivery(t, "bannos-secret"))

	assert.Equal(t, OutcomeOK, result.Outcome)
	assert.Equal(t, 1, events.claims)
}

func TestService_LostClaimIsDuplicate(t *testing.T) {
	events := &fakeEventStore{claimOK: false}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, nil)

	result := svc.Process(context.Background(), signedDelivery(t, "bannos-secret"))

	assert.Equal(t, OutcomeDuplicate, result.Outcome)
	assert.Empty(t, enq.envelopes)
	assert.Empty(t, events.outcomes)
}

func TestService_ClaimErrorLeavesNothingBehind(t *testing.T) {
	events := &fakeEventStore{claimErr: errors.New("db down")}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	guard := &fakeGuard{}
	svc := newTestService(t, events, sink, enq, guard)

	result := svc.Process(context.Background(), signedDelivery(t, "bannos-secret"))

	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Empty(t, enq.envelopes)
	assert.Empty(t, sink.entries)
	assert.Equal(t, 1, guard.deletes, "guard mark must be cleared when no claim was recorded")
}

func TestService_RetryAfterClaimErrorIsProcessed(t *testing.T) {
	guard, err := NewDuplicateGuard(newInMemoryIdempotencyStore(), time.Minute, "webhook")
	require.NoError(t, err)

	events := &fakeEventStore{claimErr: errors.New("db down")}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, guard)

	delivery := signedDelivery(t, "bannos-secret")
	result := svc.Process(context.Background(), delivery)
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Empty(t, enq.envelopes)

	// The database recovers and the origin redelivers. Nothing durable was
	// recorded for the first attempt, so the retry must go all the way
	// through, not short-circuit as a duplicate.
	events.claimErr = nil
	events.claimOK = true

	result = svc.Process(context.Background(), delivery)
	assert.Equal(t, OutcomeOK, result.Outcome)
	require.Len(t, enq.envelopes, 1)
	assert.Equal(t, "wh-1", enq.envelopes[0].WebhookID)
}

func TestService_BadSignatureRejects(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, nil)

	delivery := signedDelivery(t, "wrong-secret")
	result := svc.Process(context.Background(), delivery)

	assert.Equal(t, OutcomeUnauthorized, result.Outcome)
	require.Len(t, events.outcomes, 1)
	assert.Equal(t, enums.WebhookStatusRejected, events.outcomes[0])
	assert.Equal(t, "signature mismatch", events.notes[0])
	assert.Empty(t, enq.envelopes)
}

func TestService_UnknownStoreRejects(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, nil)

	delivery := signedDelivery(t, "bannos-secret")
	delivery.ShopDomain = "stranger.myshopify.com"
	result := svc.Process(context.Background(), delivery)

	assert.Equal(t, OutcomeUnauthorized, result.Outcome)
	require.Len(t, events.outcomes, 1)
	assert.Equal(t, "unknown store", events.notes[0])
}

func TestService_NormalizationIssuesReject(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, nil)

	body := []byte(`{"id": 1, "admin_graphql_api_id": "gid://shopify/Order/1"}`)
	delivery := Delivery{
		WebhookID:  "wh-2",
		ShopDomain: "bannos.myshopify.com",
		Topic:      "orders/create",
		Signature:  signPayload(body, "bannos-secret"),
		Body:       body,
	}
	result := svc.Process(context.Background(), delivery)

	assert.Equal(t, OutcomeInvalid, result.Outcome)
	assert.NotEmpty(t, result.Issues)
	require.Len(t, events.outcomes, 1)
	assert.Equal(t, enums.WebhookStatusRejected, events.outcomes[0])
	assert.Empty(t, enq.envelopes)
}

func TestService_EnqueueFailureDeadLetters(t *testing.T) {
	events := &fakeEventStore{claimOK: true}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{err: errors.New("broker unreachable")}
	svc := newTestService(t, events, sink, enq, nil)

	result := svc.Process(context.Background(), signedDelivery(t, "bannos-secret"))

	assert.Equal(t, OutcomeError, result.Outcome)
	require.Len(t, events.outcomes, 1)
	assert.Equal(t, enums.WebhookStatusError, events.outcomes[0])
	require.Len(t, sink.entries, 1)
	assert.Equal(t, enums.DeadLetterReasonEnqueueFailed, sink.entries[0].Reason)
	assert.NotEmpty(t, sink.entries[0].Payload)
}

func TestService_MarkOutcomeFailureAfterEnqueueStillOK(t *testing.T) {
	events := &fakeEventStore{claimOK: true, outcomeErr: errors.New("db hiccup")}
	sink := &fakeDeadLetterSink{}
	enq := &fakeEnqueuer{}
	svc := newTestService(t, events, sink, enq, nil)

	result := svc.Process(context.Background(), signedDelivery(t, "bannos-secret"))

	// The envelope is already published; a non-2xx here would only trigger
	// a redelivery that loses the claim.
	assert.Equal(t, OutcomeOK, result.Outcome)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, enums.DeadLetterReasonUnhandled, sink.entries[0].Reason)
}
