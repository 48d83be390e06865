package enums

// DeliveryMethod is how a bakery order reaches the customer.
type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

func (m DeliveryMethod) IsValid() bool {
	return m == DeliveryMethodPickup || m == DeliveryMethodDelivery
}
