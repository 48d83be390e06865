package webhooks

import (
	"strings"

	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// SecretResolver maps a delivery to its tenant store and signing secret.
type SecretResolver struct {
	secrets map[enums.Store]string
	domains map[string]enums.Store
}

// NewSecretResolver builds the resolver from the configured per-tenant
// secrets and shop domains.
func NewSecretResolver(cfg config.WebhooksConfig) *SecretResolver {
	r := &SecretResolver{
		secrets: map[enums.Store]string{
			enums.StoreBannos:    cfg.BannosSecret,
			enums.StoreFlourlane: cfg.FlourlaneSecret,
		},
		domains: map[string]enums.Store{},
	}
	if domain := normalizeDomain(cfg.BannosShopDomain); domain != "" {
		r.domains[domain] = enums.StoreBannos
	}
	if domain := normalizeDomain(cfg.FlourlaneShopDomain); domain != "" {
		r.domains[domain] = enums.StoreFlourlane
	}
	return r
}

// ResolveStore identifies the tenant for a delivery. An explicit store hint
// (query parameter) is checked first, then the shop-domain header. An
// unrecognized tenant yields ok=false, which downstream treats as a
// verification failure, never a verification skip.
func (r *SecretResolver) ResolveStore(storeHint, shopDomain string) (enums.Store, bool) {
	if hint := strings.ToLower(strings.TrimSpace(storeHint)); hint != "" {
		if store, ok := enums.ParseStore(hint); ok {
			return store, true
		}
		return "", false
	}
	if store, ok := r.domains[normalizeDomain(shopDomain)]; ok {
		return store, true
	}
	return "", false
}

// SecretFor returns the configured signing secret for the store, or empty
// when the store is unknown or has no secret configured.
func (r *SecretResolver) SecretFor(store enums.Store) string {
	return r.secrets[store]
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
