package webhooks

import (
	"testing"

	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

func testResolver() *SecretResolver {
	return NewSecretResolver(config.WebhooksConfig{
		BannosSecret:        "bannos-secret",
		FlourlaneSecret:     "flourlane-secret",
		BannosShopDomain:    "bannos.myshopify.com",
		FlourlaneShopDomain: "flourlane.myshopify.com",
	})
}

func TestResolveStore_HintWins(t *testing.T) {
	resolver := testResolver()

	store, ok := resolver.ResolveStore("flourlane", "bannos.myshopify.com")
	if !ok || store != enums.StoreFlourlane {
		t.Fatalf("expected hint to win, got %q ok=%v", store, ok)
	}
}

func TestResolveStore_UnknownHintFails(t *testing.T) {
	resolver := testResolver()

	// A bad explicit hint must not fall back to the domain header.
	if store, ok := resolver.ResolveStore("unknown", "bannos.myshopify.com"); ok {
		t.Fatalf("expected unknown hint to fail, got %q", store)
	}
}

func TestResolveStore_DomainFallback(t *testing.T) {
	resolver := testResolver()

	store, ok := resolver.ResolveStore("", "Bannos.MyShopify.com")
	if !ok || store != enums.StoreBannos {
		t.Fatalf("expected domain match, got %q ok=%v", store, ok)
	}

	if _, ok := resolver.ResolveStore("", "stranger.myshopify.com"); ok {
		t.Fatal("expected unknown domain to fail")
	}
}

func TestSecretFor(t *testing.T) {
	resolver := testResolver()

	if got := resolver.SecretFor(enums.StoreBannos); got != "bannos-secret" {
		t.Fatalf("unexpected secret %q", got)
	}
	if got := resolver.SecretFor(enums.Store("nope")); got != "" {
		t.Fatalf("expected empty secret for unknown store, got %q", got)
	}
}
