package model

// DeliveryState is the terminal state of one delivery attempt.
type DeliveryState string

// Terminal states. Every state is acknowledged to the exchange the same way.
const (
	DeliveryStateDelivered        DeliveryState = "delivered"
	DeliveryStateNotDelivered     DeliveryState = "not_delivered"
	DeliveryStateResolutionFailed DeliveryState = "resolution_failed"
	DeliveryStateBuildFailed      DeliveryState = "build_failed"
	DeliveryStateInternalFailure  DeliveryState = "internal_failure"
)

// DeliveryOutcome records how a single delivery attempt ended.
type DeliveryOutcome struct {
	State       DeliveryState
	Destination string
	StatusCode  int
	Err         error
}

