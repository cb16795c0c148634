package types

type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "UP"
	HealthStatusDown     HealthStatus = "DOWN"
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// HealthComponent is the state of one dependency (settings store, redis).
type HealthComponent struct {
	Status    HealthStatus `json:"status"`
	Details   string       `json:"details,omitempty"`
	LatencyMS int64        `json:"latency_ms"`
}

// HealthCheck is the aggregated answer of the health endpoints.
type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]HealthComponent `json:"components"`
	Version    string                     `json:"version"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
}
