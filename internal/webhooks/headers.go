package webhooks

// Delivery metadata headers set by the origin store platform.
const (
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderSignature  = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
)
