package domain

// KycCompletedEvent is the payload consumed from the customer events
// exchange when a customer's KYC verification finishes. Delivery is
// at-least-once; handling must be idempotent.
type KycCompletedEvent struct {
	CustomerID int64 `json:"customer_id"`
}
