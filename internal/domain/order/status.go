package order

// Status is the lifecycle state of an order line.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the order's lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// Upstream status codes as reported by the marketplace listing API.
const (
	UpstreamStatusPendingPayment  = 1
	UpstreamStatusPendingShipment = 2
	UpstreamStatusShipped         = 3
	UpstreamStatusCancelled       = 4
	UpstreamStatusCompleted       = 5
	UpstreamStatusRefunding       = 6
	UpstreamStatusRefunded        = 7
)

// statusByUpstreamCode maps upstream status codes onto the internal
// lifecycle. Transitions are driven by this table only, never inferred.
var statusByUpstreamCode = map[int]Status{
	UpstreamStatusPendingPayment:  StatusPending,
	UpstreamStatusPendingShipment: StatusProcessing,
	UpstreamStatusShipped:         StatusShipped,
	UpstreamStatusCancelled:       StatusCancelled,
	UpstreamStatusCompleted:       StatusDelivered,
	UpstreamStatusRefunding:       StatusRefunded,
	UpstreamStatusRefunded:        StatusRefunded,
}

// StatusFromUpstreamCode maps an upstream status code to the internal
// status. Unknown codes return ("", false); callers keep the previous
// status in that case.
func StatusFromUpstreamCode(code int) (Status, bool) {
	s, ok := statusByUpstreamCode[code]
	return s, ok
}
