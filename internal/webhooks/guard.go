package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orderdeskhq/orderdesk-backend/pkg/redis"
)

// DuplicateGuard is a fast-path duplicate check in front of the durable
// claim. Webhook origins redeliver aggressively; the SetNX key lets repeat
// deliveries short-circuit without touching Postgres. The claim row stays the
// source of truth: a guard miss or guard failure only means the request falls
// through to the database claim.
type DuplicateGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewDuplicateGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*DuplicateGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &DuplicateGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark marks the delivery as seen and reports whether it already was.
func (g *DuplicateGuard) CheckAndMark(ctx context.Context, webhookID, shopDomain string) (bool, error) {
	if webhookID == "" || shopDomain == "" {
		return false, errors.New("webhook id and shop domain are required")
	}
	set, err := g.store.SetNX(ctx, g.key(webhookID, shopDomain), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the fast-path mark. Callers use it when processing failed
// without recording the durable claim, so the origin's retry is not
// swallowed as a duplicate.
func (g *DuplicateGuard) Delete(ctx context.Context, webhookID, shopDomain string) error {
	if webhookID == "" || shopDomain == "" {
		return errors.New("webhook id and shop domain are required")
	}
	return g.store.Del(ctx, g.key(webhookID, shopDomain))
}

func (g *DuplicateGuard) key(webhookID, shopDomain string) string {
	return g.store.IdempotencyKey(g.scope, shopDomain+":"+webhookID)
}
