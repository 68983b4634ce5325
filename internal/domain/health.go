package domain

import "time"

// HealthStatus summarises a dependency probe.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// SystemHealthCheck is the outcome of one dependency probe.
type SystemHealthCheck struct {
	Status    HealthStatus
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency probes for readiness endpoints.
type SystemHealthReport struct {
	Status      HealthStatus
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}

func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusOK:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// WorstHealth folds probe outcomes into one status. No checks means ok.
func WorstHealth(checks map[string]SystemHealthCheck) HealthStatus {
	worst := HealthStatusOK
	for _, check := range checks {
		if check.Status.severity() > worst.severity() {
			worst = check.Status
		}
	}
	if worst.severity() == 2 {
		return HealthStatusError
	}
	return worst
}
