package enums

// DeadLetterReason tags why a delivery ended up in the dead letter table.
type DeadLetterReason string

const (
	DeadLetterReasonMissingWebhookID DeadLetterReason = "missing_webhook_id"
	DeadLetterReasonMissingShop      DeadLetterReason = "missing_shop_domain"
	DeadLetterReasonEnqueueFailed    DeadLetterReason = "enqueue_failed"
	DeadLetterReasonUnhandled        DeadLetterReason = "webhook_unhandled"
)

var validDeadLetterReasons = []DeadLetterReason{
	DeadLetterReasonMissingWebhookID,
	DeadLetterReasonMissingShop,
	DeadLetterReasonEnqueueFailed,
	DeadLetterReasonUnhandled,
}

func (r DeadLetterReason) IsValid() bool {
	for _, candidate := range validDeadLetterReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
