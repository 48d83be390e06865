package triage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pagination"
)

type deadLetterStore interface {
	List(ctx context.Context, limit int) ([]models.WebhookDeadLetter, error)
	FindByID(ctx context.Context, id string) (*models.WebhookDeadLetter, error)
}

type eventLister interface {
	ListByStatus(ctx context.Context, status enums.WebhookStatus, limit int) ([]models.WebhookEvent, error)
}

type enqueuer interface {
	Enqueue(ctx context.Context, envelope orders.IngestEnvelope) error
}

type storeResolver interface {
	ResolveStore(storeHint, shopDomain string) (enums.Store, bool)
}

// Service exposes the operator surface over the ingest audit tables: listing
// stuck deliveries and replaying dead-lettered payloads into the pipeline.
type Service struct {
	deadLetters deadLetterStore
	events      eventLister
	enqueuer    enqueuer
	resolver    storeResolver
	logg        *logger.Logger
}

func NewService(deadLetters deadLetterStore, events eventLister, enq enqueuer, resolver storeResolver, logg *logger.Logger) (*Service, error) {
	if deadLetters == nil {
		return nil, errors.New("dead letter store is required")
	}
	if events == nil {
		return nil, errors.New("event lister is required")
	}
	if enq == nil {
		return nil, errors.New("enqueuer is required")
	}
	if resolver == nil {
		return nil, errors.New("store resolver is required")
	}
	return &Service{
		deadLetters: deadLetters,
		events:      events,
		enqueuer:    enq,
		resolver:    resolver,
		logg:        logg,
	}, nil
}

// ListDeadLetters returns the most recent dead letters.
func (s *Service) ListDeadLetters(ctx context.Context, limit int) ([]models.WebhookDeadLetter, error) {
	rows, err := s.deadLetters.List(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters")
	}
	return rows, nil
}

// ListWebhookEvents returns recent claim rows, optionally filtered by status.
func (s *Service) ListWebhookEvents(ctx context.Context, status enums.WebhookStatus, limit int) ([]models.WebhookEvent, error) {
	if status != "" && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown webhook status")
	}
	rows, err := s.events.ListByStatus(ctx, status, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list webhook events")
	}
	return rows, nil
}

// Replay re-publishes a dead-lettered payload onto the orders topic. Only
// infrastructure failures are replayable; deliveries dead-lettered for
// missing metadata carry no usable payload.
func (s *Service) Replay(ctx context.Context, deadLetterID string) error {
	entry, err := s.deadLetters.FindByID(ctx, deadLetterID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "dead letter not found")
	}
	if entry.Reason != enums.DeadLetterReasonEnqueueFailed && entry.Reason != enums.DeadLetterReasonUnhandled {
		return pkgerrors.New(pkgerrors.CodeConflict, "dead letter is not replayable")
	}
	if len(entry.Payload) == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "dead letter has no payload")
	}

	store, ok := s.resolver.ResolveStore("", entry.ShopDomain)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "dead letter shop domain does not map to a store")
	}

	envelope := orders.IngestEnvelope{
		Version:    1,
		WebhookID:  entry.WebhookID,
		ShopDomain: entry.ShopDomain,
		Topic:      entry.Topic,
		Store:      store,
		Body:       json.RawMessage(entry.Payload),
	}
	if err := s.enqueuer.Enqueue(ctx, envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay enqueue")
	}

	if s.logg != nil {
		fields := map[string]any{
			"dead_letter_id": entry.ID.String(),
			"webhook_id":     entry.WebhookID,
			"store":          store,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "dead letter replayed")
	}
	return nil
}
