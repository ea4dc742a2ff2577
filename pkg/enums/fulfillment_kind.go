package enums

import "fmt"

// FulfillmentKind distinguishes table service from counter pickup.
type FulfillmentKind string

const (
	FulfillmentDineIn FulfillmentKind = "dine_in"
	FulfillmentPickup FulfillmentKind = "pickup"
)

var validFulfillmentKinds = []FulfillmentKind{
	FulfillmentDineIn,
	FulfillmentPickup,
}

func (k FulfillmentKind) String() string {
	return string(k)
}

func (k FulfillmentKind) IsValid() bool {
	for _, candidate := range validFulfillmentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func ParseFulfillmentKind(value string) (FulfillmentKind, error) {
	for _, candidate := range validFulfillmentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment kind %q", value)
}
