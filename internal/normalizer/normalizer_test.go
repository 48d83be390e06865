package normalizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

func fixedNow() time.Time {
	return time.Date(2025, 1, 28, 9, 30, 0, 0, time.UTC)
}

func newTestNormalizer() *Normalizer {
	return &Normalizer{Now: fixedNow}
}

func TestNormalize_FullOrder(t *testing.T) {
	payload := []byte(`{
		"id": 5551234,
		"admin_graphql_api_id": "gid://shopify/Order/5551234",
		"order_number": 12345,
		"currency": "AUD",
		"total_price": "89.90",
		"note": "Happy birthday message on top",
		"note_attributes": [
			{"name": "Local Delivery Date and Time", "value": "2025-01-30 between 10am-2pm"},
			{"name": "Delivery Instructions", "value": "Leave at reception"}
		],
		"shipping_address": {"name": "Jordan Smith"},
		"line_items": [
			{
				"title": "Chocolate Cake",
				"variant_title": "Large / Round",
				"quantity": 1,
				"properties": [
					{"name": "Gelato Flavours", "value": "Vanilla, Chocolate"}
				]
			}
		]
	}`)

	order, issues := newTestNormalizer().Normalize(payload, enums.StoreBannos)
	require.Empty(t, issues)
	require.NotNil(t, order)

	assert.Equal(t, "bannos-12345", order.ID)
	assert.Equal(t, enums.StoreBannos, order.Store)
	assert.Equal(t, int64(5551234), order.ShopifyOrderID)
	assert.Equal(t, int64(12345), order.OrderNumber)
	assert.Equal(t, "Jordan Smith", order.CustomerName)
	assert.Equal(t, "Chocolate Cake", order.ProductTitle)
	assert.Equal(t, "Vanilla, Chocolate", order.Flavour)
	assert.Equal(t, "2025-01-30", order.DueDate)
	assert.Equal(t, enums.DeliveryMethodDelivery, order.DeliveryMethod)
	assert.Equal(t, "Happy birthday message on top • Leave at reception", order.Notes)
	assert.Equal(t, "AUD", order.Currency)
	assert.Equal(t, "89.9", order.TotalAmount.String())
	assert.Equal(t, enums.PriorityMedium, order.Priority)
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	payload := []byte(`{
		"id": 42,
		"admin_graphql_api_id": "gid://shopify/Order/42",
		"note_attributes": [
			{"name": "Local Delivery Date and Time", "value": "2025-02-01"}
		],
		"shipping_address": {"name": "Sam"}
	}`)

	order, issues := newTestNormalizer().Normalize(payload, enums.StoreBannos)
	assert.Nil(t, order)
	require.Len(t, issues, 2)

	paths := []string{issues[0].Path, issues[1].Path}
	assert.Contains(t, paths, "order_number")
	assert.Contains(t, paths, "line_items")
}

func TestNormalize_MalformedJSONCollectsAllIssues(t *testing.T) {
	order, issues := newTestNormalizer().Normalize([]byte(`{not json`), enums.StoreFlourlane)
	assert.Nil(t, order)
	assert.NotEmpty(t, issues)
}

func TestNormalize_AttributeDateWinsOverTag(t *testing.T) {
	payload := []byte(`{
		"id": 1,
		"admin_graphql_api_id": "gid://shopify/Order/1",
		"order_number": 77,
		"tags": "DEL: 2025-03-15, wholesale",
		"note_attributes": [
			{"name": "Local Delivery Date and Time", "value": "2025-03-01 between 2pm-6pm"}
		],
		"shipping_address": {"first_name": "Alex", "last_name": "Nguyen"},
		"line_items": [{"title": "Tart", "quantity": 2}]
	}`)

	order, issues := newTestNormalizer().Normalize(payload, enums.StoreFlourlane)
	require.Empty(t, issues)
	assert.Equal(t, "2025-03-01", order.DueDate)
	assert.Equal(t, "Alex Nguyen", order.CustomerName)
}

func TestNormalize_TagDateFallback(t *testing.T) {
	payload := []byte(`{
		"id": 2,
		"admin_graphql_api_id": "gid://shopify/Order/2",
		"order_number": 88,
		"tags": ["rush", "PICKUP: 2025-01-29"],
		"customer": {"first_name": "Robin", "last_name": "Lee"},
		"line_items": [{"title": "Croissant Box", "quantity": 1}]
	}`)

	order, issues := newTestNormalizer().Normalize(payload, enums.StoreBannos)
	require.Empty(t, issues)
	assert.Equal(t, "2025-01-29", order.DueDate)
	assert.Equal(t, enums.PriorityHigh, order.Priority)
}

func TestNormalize_BlacklistedPropertiesSkipped(t *testing.T) {
	payload := []byte(`{
		"id": 3,
		"admin_graphql_api_id": "gid://shopify/Order/3",
		"order_number": 99,
		"note_attributes": [
			{"name": "Local Delivery Date and Time", "value": "2025-04-10"}
		],
		"shipping_address": {"name": "Pat"},
		"line_items": [
			{
				"title": "Gelato Tub",
				"variant_title": "Pistachio / 1L",
				"quantity": 1,
				"properties": [
					{"name": "_internal_origin", "value": "pos"},
					{"name": "gwp_campaign", "value": "x"}
				]
			}
		]
	}`)

	order, issues := newTestNormalizer().Normalize(payload, enums.StoreBannos)
	require.Empty(t, issues)
	assert.Equal(t, "Pistachio", order.Flavour)
}

func TestNormalize_PickupMethodAndGiftCardSkipped(t *testing.T) {
	payload := []byte(`{
		"id": 4,
		"admin_graphql_api_id": "gid://shopify/Order/4",
		"order_number": 100,
		"note_attributes": [
			{"name": "Delivery Method", "value": "Pick up"},
			{"name": "Local Delivery Date and Time", "value": "2025-02-15"}
		],
		"shipping_address": {"name": "Casey"},
		"line_items": [
			{"title": "Gift Card", "quantity": 1, "gift_card": true},
			{"title": "Lemon Cake", "quantity": 1}
		]
	}`)

	order, issues := newTestNormalizer().Normalize(payload, enums.StoreBannos)
	require.Empty(t, issues)
	assert.Equal(t, enums.DeliveryMethodPickup, order.DeliveryMethod)
	assert.Equal(t, "Lemon Cake", order.ProductTitle)
}

func TestNormalize_StringNumericIDs(t *testing.T) {
	payload := []byte(`{
		"id": "987",
		"admin_graphql_api_id": "gid://shopify/Order/987",
		"order_number": "654",
		"note_attributes": [
			{"name": "Local Delivery Date and Time", "value": "2025-05-01"}
		],
		"shipping_address": {"name": "Drew"},
		"line_items": [{"title": "Scones", "quantity": 6}]
	}`)

	order, issues := newTestNormalizer().Normalize(payload, enums.StoreFlourlane)
	require.Empty(t, issues)
	assert.Equal(t, "flourlane-654", order.ID)
	assert.Equal(t, int64(987), order.ShopifyOrderID)
}

func TestDerivePriority(t *testing.T) {
	now := fixedNow()
	cases := []struct {
		dueDate string
		want    enums.Priority
	}{
		{"2025-01-28", enums.PriorityHigh},
		{"2025-01-29", enums.PriorityHigh},
		{"2025-01-20", enums.PriorityHigh},
		{"2025-01-31", enums.PriorityMedium},
		{"2025-02-10", enums.PriorityLow},
		{"sometime soon", enums.PriorityLow},
		{"", enums.PriorityLow},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("due=%s", tc.dueDate), func(t *testing.T) {
			assert.Equal(t, tc.want, derivePriority(tc.dueDate, now))
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	payload := []byte(`{
		"id": 10,
		"admin_graphql_api_id": "gid://shopify/Order/10",
		"order_number": 11,
		"note_attributes": [
			{"name": "Local Delivery Date and Time", "value": "2025-06-01"}
		],
		"shipping_address": {"name": "Morgan"},
		"line_items": [{"title": "Baguette", "quantity": 3}]
	}`)

	n := newTestNormalizer()
	first, issues := n.Normalize(payload, enums.StoreBannos)
	require.Empty(t, issues)
	second, issues := n.Normalize(payload, enums.StoreBannos)
	require.Empty(t, issues)
	assert.Equal(t, first, second)
}
