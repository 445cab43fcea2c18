package enums

import "fmt"

// WorkOrderStatus tracks the lifecycle of a manufacturing work order.
type WorkOrderStatus string

const (
	WorkOrderStatusPendingMaterials   WorkOrderStatus = "pending_materials"
	WorkOrderStatusReady              WorkOrderStatus = "ready"
	WorkOrderStatusInProgress         WorkOrderStatus = "in_progress"
	WorkOrderStatusOnHold             WorkOrderStatus = "on_hold"
	WorkOrderStatusPartiallyCompleted WorkOrderStatus = "partially_completed"
	WorkOrderStatusCompleted          WorkOrderStatus = "completed"
	WorkOrderStatusCancelled          WorkOrderStatus = "cancelled"
)

var validWorkOrderStatuses = []WorkOrderStatus{
	WorkOrderStatusPendingMaterials,
	WorkOrderStatusReady,
	WorkOrderStatusInProgress,
	WorkOrderStatusOnHold,
	WorkOrderStatusPartiallyCompleted,
	WorkOrderStatusCompleted,
	WorkOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s WorkOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WorkOrderStatus.
func (s WorkOrderStatus) IsValid() bool {
	for _, candidate := range validWorkOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderStatusCompleted || s == WorkOrderStatusCancelled
}

// ParseWorkOrderStatus converts raw input into a WorkOrderStatus.
func ParseWorkOrderStatus(value string) (WorkOrderStatus, error) {
	for _, candidate := range validWorkOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid work order status %q", value)
}
