package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// VerifyResult is the outcome of a signature check. Note is a diagnostic for
// the event log and must never contain the expected signature value.
type VerifyResult struct {
	OK   bool
	Note string
}

// VerifySignature checks that payload was signed with secret. The HMAC-SHA256
// is computed over the exact raw request bytes and compared constant-time
// against the decoded base64 signature, never with string equality.
func VerifySignature(payload []byte, providedBase64, secret string) VerifyResult {
	if strings.TrimSpace(secret) == "" {
		return VerifyResult{Note: "signing secret not configured"}
	}
	provided := strings.TrimSpace(providedBase64)
	if provided == "" {
		return VerifyResult{Note: "signature header missing"}
	}

	providedMAC, err := base64.StdEncoding.DecodeString(provided)
	if err != nil {
		return VerifyResult{Note: "signature is not valid base64"}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedMAC := mac.Sum(nil)

	if !hmac.Equal(expectedMAC, providedMAC) {
		return VerifyResult{Note: "signature mismatch"}
	}
	return VerifyResult{OK: true}
}
