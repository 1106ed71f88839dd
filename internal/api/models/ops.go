package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status    HealthStatus      `json:"status"`
	Time      Timestamp         `json:"time"`
	Modes     map[string]string `json:"modes"`
	Providers []ProviderStatus  `json:"providers"`
}

// ProviderStatus represents the status of an upstream provider.
type ProviderStatus struct {
	Provider       string       `json:"provider"`
	Status         HealthStatus `json:"status"`
	BreakerEnabled bool         `json:"breakerEnabled"`
	CircuitState   string       `json:"circuitState"`
	Successes      uint64       `json:"successes"`
	Failures       uint64       `json:"failures"`
	LastSuccessAt  *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt  *Timestamp   `json:"lastFailureAt,omitempty"`
	Message        *string      `json:"message,omitempty"`
}
