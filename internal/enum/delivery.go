package enum

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

func (t DeliveryStatus) String() string {
	return string(t)
}

func (t DeliveryStatus) IsValid() bool {
	switch t {
	case DeliveryStatusPending, DeliveryStatusSent, DeliveryStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transition.
func (t DeliveryStatus) IsTerminal() bool {
	return t == DeliveryStatusSent || t == DeliveryStatusFailed
}

func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	status := DeliveryStatus(s)
	return status, status.IsValid()
}
