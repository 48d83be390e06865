package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawOrder is the loosely-typed shape of a store order payload. Stores are
// inconsistent about optional and variant fields, so everything below is
// tolerant: numbers may arrive as strings, attributes may be a list or an
// object, tags may be a comma string or an array.
type RawOrder struct {
	ID                json.Number     `json:"id"`
	AdminGraphqlAPIID string          `json:"admin_graphql_api_id"`
	OrderNumber       json.Number     `json:"order_number"`
	Note              string          `json:"note"`
	NoteAttributes    []NameValue     `json:"note_attributes"`
	Attributes        json.RawMessage `json:"attributes"`
	Tags              json.RawMessage `json:"tags"`
	LineItems         []RawLineItem   `json:"line_items"`
	ShippingAddress   *RawAddress     `json:"shipping_address"`
	Customer          *RawCustomer    `json:"customer"`
	Currency          string          `json:"currency"`
	TotalPrice        string          `json:"total_price"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type RawLineItem struct {
	Title        string      `json:"title"`
	VariantTitle string      `json:"variant_title"`
	Quantity     int         `json:"quantity"`
	GiftCard     bool        `json:"gift_card"`
	Properties   []NameValue `json:"properties"`
}

type RawAddress struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RawCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ParseRawOrder decodes payload bytes into the tolerant order shape.
// Malformed JSON yields an empty order rather than an error: the pipeline
// still needs to run validation and record something for audit.
func ParseRawOrder(payload []byte) RawOrder {
	var raw RawOrder
	decoder := json.NewDecoder(strings.NewReader(string(payload)))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return RawOrder{}
	}
	return raw
}

// attributeValue looks up a named attribute case-insensitively, checking the
// note-attributes list first and then the attributes collection, which may be
// either an array of {name,value} pairs or a plain object.
func (o RawOrder) attributeValue(name string) string {
	for _, attr := range o.NoteAttributes {
		if strings.EqualFold(strings.TrimSpace(attr.Name), name) {
			return attr.Value
		}
	}
	if len(o.Attributes) == 0 {
		return ""
	}

	var asList []NameValue
	if err := json.Unmarshal(o.Attributes, &asList); err == nil {
		for _, attr := range asList {
			if strings.EqualFold(strings.TrimSpace(attr.Name), name) {
				return attr.Value
			}
		}
		return ""
	}

	var asObject map[string]string
	if err := json.Unmarshal(o.Attributes, &asObject); err == nil {
		for key, value := range asObject {
			if strings.EqualFold(strings.TrimSpace(key), name) {
				return value
			}
		}
	}
	return ""
}

// tagList flattens the tags field into individual trimmed tags.
func (o RawOrder) tagList() []string {
	if len(o.Tags) == 0 {
		return nil
	}

	var asString string
	if err := json.Unmarshal(o.Tags, &asString); err == nil {
		return splitAndTrim(asString, ",")
	}

	var asList []string
	if err := json.Unmarshal(o.Tags, &asList); err == nil {
		tags := make([]string, 0, len(asList))
		for _, tag := range asList {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
		return tags
	}
	return nil
}

// primaryLineItem returns the first line item that is not a gift card and has
// a positive quantity.
func (o RawOrder) primaryLineItem() *RawLineItem {
	for i := range o.LineItems {
		item := &o.LineItems[i]
		if !item.GiftCard && item.Quantity > 0 {
			return item
		}
	}
	return nil
}

func numberToInt64(n json.Number) (int64, bool) {
	if n.String() == "" {
		return 0, false
	}
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(n.String()), 10, 64); err == nil {
		return v, true
	}
	return 0, false
}

func splitAndTrim(value string, separators string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
