package services

import (
	"cmp"
	"context"
	"errors"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

// BuildInfo is the release metadata reported by the readiness endpoint.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	probes repositories.HealthRepository
	clock  func() time.Time
	build  BuildInfo
}

var _ SystemService = (*systemService)(nil)

func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	svc := &systemService{probes: deps.HealthRepository, clock: utcClock(deps.Clock), build: deps.Build}
	if svc.build.StartedAt.IsZero() {
		svc.build.StartedAt = svc.clock()
	}
	return svc, nil
}

// HealthReport probes the backing services and stamps release metadata onto the result.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.probes.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}
	now := s.clock()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	report.Version = cmp.Or(report.Version, s.build.Version)
	report.CommitSHA = cmp.Or(report.CommitSHA, s.build.CommitSHA)
	report.Environment = cmp.Or(report.Environment, s.build.Environment)
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	if report.Status == "" {
		report.Status = domain.WorstHealth(report.Checks)
	}
	return report, nil
}
