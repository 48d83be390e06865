package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/orderdeskhq/orderdesk-backend/internal/normalizer"
	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

// Delivery carries everything the pipeline needs from one inbound request.
// Body is the raw request bytes, read exactly once; the signature was
// computed over these bytes and nothing may re-encode them.
type Delivery struct {
	WebhookID  string
	ShopDomain string
	Topic      string
	StoreHint  string
	Signature  string
	Body       []byte
}

// Outcome is the terminal state of one processed delivery.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeBadRequest   Outcome = "bad_request"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeError        Outcome = "error"
)

// Result is what the controller turns into an HTTP response.
type Result struct {
	Outcome Outcome
	Store   enums.Store
	Issues  []normalizer.Issue
	Err     error
}

// EventStore is the idempotency claim surface.
type EventStore interface {
	Claim(ctx context.Context, webhookID, shopDomain, topic string) (bool, error)
	MarkOutcome(ctx context.Context, webhookID, shopDomain string, status enums.WebhookStatus, note string) error
}

// DeadLetterSink records deliveries that could not be processed.
type DeadLetterSink interface {
	Insert(ctx context.Context, entry models.WebhookDeadLetter) error
}

// Enqueuer hands verified deliveries to the downstream order pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, envelope orders.IngestEnvelope) error
}

type duplicateChecker interface {
	CheckAndMark(ctx context.Context, webhookID, shopDomain string) (bool, error)
	Delete(ctx context.Context, webhookID, shopDomain string) error
}

// Service orchestrates the ingest pipeline for one webhook delivery.
type Service struct {
	resolver       *SecretResolver
	guard          duplicateChecker
	events         EventStore
	deadLetters    DeadLetterSink
	enqueuer       Enqueuer
	normalizer     *normalizer.Normalizer
	logg           *logger.Logger
	enqueueTimeout time.Duration
}

type ServiceParams struct {
	Resolver       *SecretResolver
	Guard          duplicateChecker
	Events         EventStore
	DeadLetters    DeadLetterSink
	Enqueuer       Enqueuer
	Normalizer     *normalizer.Normalizer
	Logger         *logger.Logger
	EnqueueTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Resolver == nil {
		return nil, errors.New("secret resolver is required")
	}
	if params.Events == nil {
		return nil, errors.New("event store is required")
	}
	if params.DeadLetters == nil {
		return nil, errors.New("dead letter sink is required")
	}
	if params.Enqueuer == nil {
		return nil, errors.New("enqueuer is required")
	}
	norm := params.Normalizer
	if norm == nil {
		norm = normalizer.New()
	}
	timeout := params.EnqueueTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		resolver:       params.Resolver,
		guard:          params.Guard,
		events:         params.Events,
		deadLetters:    params.DeadLetters,
		enqueuer:       params.Enqueuer,
		normalizer:     norm,
		logg:           params.Logger,
		enqueueTimeout: timeout,
	}, nil
}

// Process runs the fixed step order for one delivery: reject malformed
// metadata, claim idempotency, verify the signature, normalize, enqueue,
// record the outcome. Each step short-circuits on failure, and the claimed
// row is never left pending: a catch-all guard converts panics into the
// unhandled dead-letter path.
func (s *Service) Process(ctx context.Context, delivery Delivery) (result Result) {
	claimed := false

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			if s.logg != nil {
				s.logg.Error(ctx, "webhook pipeline panic", err)
			}
			if claimed {
				s.recordFailure(ctx, delivery, enums.DeadLetterReasonUnhandled, err)
			}
			result = Result{Outcome: OutcomeError, Err: pkgerrors.Wrap(pkgerrors.CodeInternal, err, "webhook processing failed")}
		}
	}()

	if delivery.WebhookID == "" {
		s.insertDeadLetter(ctx, delivery, enums.DeadLetterReasonMissingWebhookID, "webhook id header missing")
		return Result{Outcome: OutcomeBadRequest, Err: pkgerrors.New(pkgerrors.CodeValidation, "webhook id header missing")}
	}
	if delivery.ShopDomain == "" {
		s.insertDeadLetter(ctx, delivery, enums.DeadLetterReasonMissingShop, "shop domain header missing")
		return Result{Outcome: OutcomeBadRequest, Err: pkgerrors.New(pkgerrors.CodeValidation, "shop domain header missing")}
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, delivery.WebhookID, delivery.ShopDomain)
		if err != nil {
			// The guard is a fast path only; the claim below stays correct
			// without it.
			if s.logg != nil {
				s.logg.Warn(ctx, "duplicate guard unavailable, falling back to claim")
			}
		} else if seen {
			return Result{Outcome: OutcomeDuplicate}
		}
	}

	ok, err := s.events.Claim(ctx, delivery.WebhookID, delivery.ShopDomain, delivery.Topic)
	if err != nil {
		// The claim was never recorded, so the origin's retry is safe;
		// clear the guard mark so that retry is not treated as a duplicate.
		s.unmarkGuard(ctx, delivery)
		return Result{Outcome: OutcomeError, Err: pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook delivery")}
	}
	if !ok {
		return Result{Outcome: OutcomeDuplicate}
	}
	claimed = true

	store, resolved := s.resolver.ResolveStore(delivery.StoreHint, delivery.ShopDomain)
	verify := VerifyResult{Note: "unknown store"}
	if resolved {
		verify = VerifySignature(delivery.Body, delivery.Signature, s.resolver.SecretFor(store))
	}
	if !verify.OK {
		s.markOutcome(ctx, delivery, enums.WebhookStatusRejected, verify.Note)
		return Result{Outcome: OutcomeUnauthorized, Store: store, Err: pkgerrors.New(pkgerrors.CodeUnauthorized, "unauthorized")}
	}

	order, issues := s.normalizer.Normalize(delivery.Body, store)
	if len(issues) > 0 {
		s.markOutcome(ctx, delivery, enums.WebhookStatusRejected, fmt.Sprintf("validation failed: %d issues", len(issues)))
		return Result{Outcome: OutcomeInvalid, Store: store, Issues: issues}
	}

	envelope := orders.IngestEnvelope{
		Version:    1,
		WebhookID:  delivery.WebhookID,
		ShopDomain: delivery.ShopDomain,
		Topic:      delivery.Topic,
		Store:      store,
		Body:       json.RawMessage(delivery.Body),
	}
	enqueueCtx, cancel := context.WithTimeout(ctx, s.enqueueTimeout)
	err = s.enqueuer.Enqueue(enqueueCtx, envelope)
	cancel()
	if err != nil {
		s.recordFailure(ctx, delivery, enums.DeadLetterReasonEnqueueFailed, err)
		return Result{Outcome: OutcomeError, Store: store, Err: pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue order ingest")}
	}

	if err := s.events.MarkOutcome(ctx, delivery.WebhookID, delivery.ShopDomain, enums.WebhookStatusOK, order.ID); err != nil {
		// The enqueue already succeeded, so the delivery is processed; the
		// stuck row is surfaced through a dead letter instead of a retry
		// storm from a non-2xx response.
		s.insertDeadLetter(ctx, delivery, enums.DeadLetterReasonUnhandled, fmt.Sprintf("mark outcome failed: %v", err))
		if s.logg != nil {
			s.logg.Error(ctx, "failed to mark webhook ok", err)
		}
	}
	return Result{Outcome: OutcomeOK, Store: store}
}

// recordFailure marks the claimed row as errored and appends a dead letter.
// Both writes are best-effort; their errors are combined for the log only.
func (s *Service) recordFailure(ctx context.Context, delivery Delivery, reason enums.DeadLetterReason, cause error) {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	var recordErr error
	if err := s.events.MarkOutcome(ctx, delivery.WebhookID, delivery.ShopDomain, enums.WebhookStatusError, detail); err != nil {
		recordErr = multierr.Append(recordErr, fmt.Errorf("mark outcome: %w", err))
	}
	if err := s.deadLetters.Insert(ctx, NewDeadLetter(reason, delivery.WebhookID, delivery.ShopDomain, delivery.Topic, delivery.Body, detail)); err != nil {
		recordErr = multierr.Append(recordErr, fmt.Errorf("dead letter: %w", err))
	}
	if recordErr != nil && s.logg != nil {
		s.logg.Error(ctx, "failure bookkeeping incomplete", recordErr)
	}
}

func (s *Service) unmarkGuard(ctx context.Context, delivery Delivery) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Delete(ctx, delivery.WebhookID, delivery.ShopDomain); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "failed to clear duplicate guard mark")
	}
}

func (s *Service) markOutcome(ctx context.Context, delivery Delivery, status enums.WebhookStatus, note string) {
	if err := s.events.MarkOutcome(ctx, delivery.WebhookID, delivery.ShopDomain, status, note); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to mark webhook outcome", err)
	}
}

func (s *Service) insertDeadLetter(ctx context.Context, delivery Delivery, reason enums.DeadLetterReason, detail string) {
	entry := NewDeadLetter(reason, delivery.WebhookID, delivery.ShopDomain, delivery.Topic, delivery.Body, detail)
	if err := s.deadLetters.Insert(ctx, entry); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to write dead letter", err)
	}
}
