package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	build  services.BuildInfo
	system services.SystemService
	clock  func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo sets the build metadata reported by /healthz.
func WithHealthBuildInfo(info services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthSystemService sets the service probing dependencies for /readyz.
func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = svc
	}
}

// WithHealthClock overrides the clock used for uptime and timestamps.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs probe handlers. Without a system service /readyz reports ok.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

type healthCheckPayload struct {
	Status    domain.HealthStatus `json:"status"`
	Detail    string              `json:"detail,omitempty"`
	Error     string              `json:"error,omitempty"`
	LatencyMS int64               `json:"latencyMs"`
	CheckedAt string              `json:"checkedAt,omitempty"`
}

type readinessPayload struct {
	Status      domain.HealthStatus           `json:"status"`
	Version     string                        `json:"version,omitempty"`
	CommitSHA   string                        `json:"commitSha,omitempty"`
	Environment string                        `json:"environment,omitempty"`
	Uptime      string                        `json:"uptime,omitempty"`
	GeneratedAt string                        `json:"generatedAt"`
	Checks      map[string]healthCheckPayload `json:"checks"`
	Details     []string                      `json:"details,omitempty"`
}

// Healthz reports liveness together with build metadata.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	now := h.clock().UTC()
	payload := map[string]any{
		"status":      domain.HealthStatusOK,
		"version":     h.build.Version,
		"commitSha":   h.build.CommitSHA,
		"environment": h.build.Environment,
		"uptime":      now.Sub(h.build.StartedAt).Round(time.Second).String(),
		"timestamp":   now.Format(time.RFC3339),
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// Readyz runs the dependency probes and answers 503 unless every probe is ok.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, readinessPayload{
			Status:      domain.HealthStatusOK,
			GeneratedAt: now.Format(time.RFC3339),
			Checks:      map[string]healthCheckPayload{},
		})
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, readinessPayload{
			Status:      domain.HealthStatusError,
			GeneratedAt: now.Format(time.RFC3339),
			Checks:      map[string]healthCheckPayload{},
			Details:     []string{fmt.Sprintf("health report: %v", err)},
		})
		return
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = now
	}
	payload := readinessPayload{
		Status:      report.Status,
		Version:     report.Version,
		CommitSHA:   report.CommitSHA,
		Environment: report.Environment,
		GeneratedAt: generated.UTC().Format(time.RFC3339),
		Checks:      make(map[string]healthCheckPayload, len(report.Checks)),
	}
	if report.Uptime > 0 {
		payload.Uptime = report.Uptime.Round(time.Second).String()
	}
	if payload.Status == "" {
		payload.Status = domain.HealthStatusOK
	}

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := report.Checks[name]
		entry := healthCheckPayload{
			Status:    check.Status,
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
		}
		if !check.CheckedAt.IsZero() {
			entry.CheckedAt = check.CheckedAt.UTC().Format(time.RFC3339)
		}
		payload.Checks[name] = entry
		if check.Status != domain.HealthStatusOK {
			reason := strings.TrimSpace(check.Error)
			if reason == "" {
				reason = string(check.Status)
			}
			payload.Details = append(payload.Details, name+": "+reason)
		}
	}

	status := http.StatusOK
	if payload.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
