package normalizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

const (
	dueDateAttribute         = "Local Delivery Date and Time"
	deliveryMethodAttribute  = "Delivery Method"
	deliveryInstructionsAttr = "Delivery Instructions"
)

// Issue is one field-level validation failure found before transformation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

var (
	flavourNamePattern = regexp.MustCompile(`(?i)^gelato flavours?$`)
	tagDatePattern     = regexp.MustCompile(`(?i)^(?:DEL|PICKUP):\s*(.+)$`)
)

// Properties whose names carry internal bookkeeping and must never leak into
// customer-facing output.
var blacklistedPropertyFragments = []string{"_origin", "_raw", "gwp", "_localdeliveryid"}

var dueDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// Normalizer converts raw store order payloads into canonical order records.
// Now is injectable so priority derivation is deterministic in tests.
type Normalizer struct {
	Now func() time.Time
}

func New() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize is a pure transformation of the payload bytes and store tag into
// a canonical order. Validation precedes transformation: required-but-absent
// fields accumulate as issues and the order is only produced when the issue
// list is empty.
func (n *Normalizer) Normalize(payload []byte, store enums.Store) (*models.Order, []Issue) {
	raw := ParseRawOrder(payload)
	var issues []Issue

	if strings.TrimSpace(raw.AdminGraphqlAPIID) == "" {
		issues = append(issues, Issue{Path: "admin_graphql_api_id", Message: "missing"})
	}
	orderID, hasOrderID := numberToInt64(raw.ID)
	if !hasOrderID {
		issues = append(issues, Issue{Path: "id", Message: "missing"})
	}
	orderNumber, hasOrderNumber := numberToInt64(raw.OrderNumber)
	if !hasOrderNumber {
		issues = append(issues, Issue{Path: "order_number", Message: "missing"})
	}

	primary := raw.primaryLineItem()
	if primary == nil {
		issues = append(issues, Issue{Path: "line_items", Message: "no primary line item"})
	}

	customerName := resolveCustomerName(raw)
	if customerName == "" {
		issues = append(issues, Issue{Path: "customer_name", Message: "missing"})
	}

	dueDate := resolveDueDate(raw)
	if dueDate == "" {
		issues = append(issues, Issue{Path: "due_date", Message: "missing (attributes-first)"})
	}

	if len(issues) > 0 {
		return nil, issues
	}

	humanID := orderNumber
	if humanID == 0 {
		humanID = orderID
	}

	order := &models.Order{
		ID:             fmt.Sprintf("%s-%d", store, humanID),
		Store:          store,
		ShopifyOrderID: orderID,
		GraphqlID:      raw.AdminGraphqlAPIID,
		OrderNumber:    orderNumber,
		CustomerName:   customerName,
		ProductTitle:   primary.Title,
		Flavour:        resolveFlavour(primary),
		Notes:          resolveNotes(raw),
		Currency:       raw.Currency,
		TotalAmount:    resolveTotal(raw),
		DueDate:        dueDate,
		DeliveryMethod: resolveDeliveryMethod(raw),
		Priority:       derivePriority(dueDate, n.now()),
		OrderJSON:      json.RawMessage(payload),
	}
	return order, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func resolveCustomerName(raw RawOrder) string {
	if raw.ShippingAddress != nil {
		if name := strings.TrimSpace(raw.ShippingAddress.Name); name != "" {
			return name
		}
		name := strings.TrimSpace(strings.TrimSpace(raw.ShippingAddress.FirstName) + " " + strings.TrimSpace(raw.ShippingAddress.LastName))
		if name != "" {
			return name
		}
	}
	if raw.Customer != nil {
		name := strings.TrimSpace(strings.TrimSpace(raw.Customer.FirstName) + " " + strings.TrimSpace(raw.Customer.LastName))
		if name != "" {
			return name
		}
	}
	return ""
}

// resolveDueDate applies the attributes-first precedence: the named delivery
// date attribute wins, then DEL:/PICKUP: tags, then blank.
func resolveDueDate(raw RawOrder) string {
	if value := strings.TrimSpace(raw.attributeValue(dueDateAttribute)); value != "" {
		return trimBeforeBetween(value)
	}
	for _, tag := range raw.tagList() {
		if match := tagDatePattern.FindStringSubmatch(tag); match != nil {
			if date := strings.TrimSpace(match[1]); date != "" {
				return date
			}
		}
	}
	return ""
}

// trimBeforeBetween drops the time-window suffix, e.g.
// "2025-01-30 between 10am-2pm" becomes "2025-01-30".
func trimBeforeBetween(value string) string {
	lower := strings.ToLower(value)
	if idx := strings.Index(lower, "between"); idx >= 0 {
		return strings.TrimSpace(value[:idx])
	}
	return strings.TrimSpace(value)
}

func resolveDeliveryMethod(raw RawOrder) enums.DeliveryMethod {
	value := strings.ToLower(strings.TrimSpace(raw.attributeValue(deliveryMethodAttribute)))
	if value == "pickup" || value == "pick up" {
		return enums.DeliveryMethodPickup
	}
	return enums.DeliveryMethodDelivery
}

// resolveFlavour prefers the flavour custom property on the primary line
// item, with internal bookkeeping properties filtered out, and falls back to
// the first token of the variant title.
func resolveFlavour(primary *RawLineItem) string {
	for _, prop := range primary.Properties {
		if isBlacklistedProperty(prop.Name) {
			continue
		}
		if flavourNamePattern.MatchString(strings.TrimSpace(prop.Name)) {
			if tokens := splitFlavourTokens(prop.Value); len(tokens) > 0 {
				return strings.Join(tokens, ", ")
			}
		}
	}
	if tokens := splitFlavourTokens(primary.VariantTitle); len(tokens) > 0 {
		return tokens[0]
	}
	return ""
}

func isBlacklistedProperty(name string) bool {
	trimmed := strings.TrimSpace(name)
	if strings.HasPrefix(trimmed, "_") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, fragment := range blacklistedPropertyFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

func splitFlavourTokens(value string) []string {
	return splitAndTrim(value, "\n,/")
}

func resolveNotes(raw RawOrder) string {
	parts := []string{}
	if note := strings.TrimSpace(raw.Note); note != "" {
		parts = append(parts, note)
	}
	if instructions := strings.TrimSpace(raw.attributeValue(deliveryInstructionsAttr)); instructions != "" {
		parts = append(parts, instructions)
	}
	return strings.Join(parts, " • ")
}

func resolveTotal(raw RawOrder) decimal.Decimal {
	value := strings.TrimSpace(raw.TotalPrice)
	if value == "" {
		return decimal.Zero
	}
	total, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return total
}

// derivePriority buckets the order by due date at day granularity: due
// today, in the past or tomorrow is HIGH, within three days MEDIUM,
// otherwise LOW. An unparseable due date is a soft failure and defaults LOW.
func derivePriority(dueDate string, now time.Time) enums.Priority {
	due, ok := parseDueDate(dueDate)
	if !ok {
		return enums.PriorityLow
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	delta := int(due.Sub(today).Hours() / 24)
	switch {
	case delta <= 1:
		return enums.PriorityHigh
	case delta <= 3:
		return enums.PriorityMedium
	default:
		return enums.PriorityLow
	}
}

func parseDueDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
