package enums

// WebhookStatus is the lifecycle state of a claimed webhook delivery.
// A row is created pending and transitions exactly once to ok, rejected or
// error. Rows are never deleted.
type WebhookStatus string

const (
	WebhookStatusPending  WebhookStatus = "pending"
	WebhookStatusOK       WebhookStatus = "ok"
	WebhookStatusRejected WebhookStatus = "rejected"
	WebhookStatusError    WebhookStatus = "error"
)

var validWebhookStatuses = []WebhookStatus{
	WebhookStatusPending,
	WebhookStatusOK,
	WebhookStatusRejected,
	WebhookStatusError,
}

func (s WebhookStatus) IsValid() bool {
	for _, candidate := range validWebhookStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the lifecycle.
func (s WebhookStatus) IsTerminal() bool {
	return s == WebhookStatusOK || s == WebhookStatusRejected || s == WebhookStatusError
}
