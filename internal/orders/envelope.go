package orders

import (
	"encoding/json"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// IngestEnvelope is the stable message shape published to the orders topic
// for one verified webhook delivery. Consumers key their work on
// (WebhookID, ShopDomain), so redelivered envelopes stay idempotent.
type IngestEnvelope struct {
	Version    int             `json:"version"`
	WebhookID  string          `json:"webhookId"`
	ShopDomain string          `json:"shopDomain"`
	Topic      string          `json:"topic"`
	Store      enums.Store     `json:"store"`
	Body       json.RawMessage `json:"body"`
}

const envelopeVersion = 1
