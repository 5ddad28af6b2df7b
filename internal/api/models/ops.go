package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Breakers   []BreakerStatus   `json:"breakers"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// BreakerStatus reports one circuit breaker guarding a dependency.
type BreakerStatus struct {
	Name                string       `json:"name"`
	State               string       `json:"state"`
	Status              HealthStatus `json:"status"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
}
