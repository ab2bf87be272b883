package types

import "time"

// HealthState classifies the availability of a backend dependency.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

func (s HealthState) String() string { return string(s) }

// HealthStatus is the result of probing a backend (graph store, embedder).
type HealthStatus struct {
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Healthy reports a reachable, fully functional backend.
func Healthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateHealthy, Message: message, CheckedAt: time.Now()}
}

// Degraded reports a reachable backend operating below capacity.
func Degraded(message string) HealthStatus {
	return HealthStatus{State: HealthStateDegraded, Message: message, CheckedAt: time.Now()}
}

// Unhealthy reports an unreachable or broken backend.
func Unhealthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateUnhealthy, Message: message, CheckedAt: time.Now()}
}

// IsHealthy returns true if the state is healthy.
func (h HealthStatus) IsHealthy() bool { return h.State == HealthStateHealthy }
