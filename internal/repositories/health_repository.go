package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// DependencyCheck is one readiness probe. A failing Critical probe (the document store) makes
// the instance unready; other failures only degrade it.
type DependencyCheck struct {
	Name     string
	Critical bool
	Timeout  time.Duration
	Check    func(context.Context) error
}

// DependencyHealthOption customises the probe runner.
type DependencyHealthOption func(*dependencyHealthRepository)

// WithDependencyClock injects a custom clock for tests.
func WithDependencyClock(clock func() time.Time) DependencyHealthOption {
	return func(repo *dependencyHealthRepository) {
		if clock != nil {
			repo.now = clock
		}
	}
}

type dependencyHealthRepository struct {
	checks []DependencyCheck
	now    func() time.Time
}

var _ HealthRepository = (*dependencyHealthRepository)(nil)

func NewDependencyHealthRepository(checks []DependencyCheck, opts ...DependencyHealthOption) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: at least one dependency check is required")
	}
	seen := make(map[string]struct{}, len(checks))
	for _, check := range checks {
		name := strings.TrimSpace(check.Name)
		switch {
		case name == "":
			return nil, errors.New("health repository: dependency check missing name")
		case check.Check == nil:
			return nil, fmt.Errorf("health repository: dependency %s missing check function", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("health repository: dependency %s registered twice", name)
		}
		seen[name] = struct{}{}
	}

	repo := &dependencyHealthRepository{checks: append([]DependencyCheck(nil), checks...), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Collect runs every probe concurrently, each under its own timeout.
func (r *dependencyHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	results := make([]domain.SystemHealthCheck, len(r.checks))
	var wg sync.WaitGroup
	for i := range r.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.probe(ctx, r.checks[i])
		}()
	}
	wg.Wait()

	checks := make(map[string]domain.SystemHealthCheck, len(results))
	for i, result := range results {
		checks[r.checks[i].Name] = result
	}
	return domain.SystemHealthReport{
		Status:      domain.WorstHealth(checks),
		Checks:      checks,
		GeneratedAt: r.now(),
	}, nil
}

func (r *dependencyHealthRepository) probe(ctx context.Context, check DependencyCheck) domain.SystemHealthCheck {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = defaultDependencyTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.now()
	err := check.Check(probeCtx)
	if err == nil {
		err = probeCtx.Err()
	}
	end := r.now()

	result := domain.SystemHealthCheck{Status: domain.HealthStatusOK, Detail: "ok", Latency: end.Sub(start), CheckedAt: end}
	if err == nil {
		return result
	}
	result.Status, result.Error = domain.HealthStatusDegraded, err.Error()
	if check.Critical {
		result.Status = domain.HealthStatusError
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result.Detail = "timeout"
	case errors.Is(err, context.Canceled):
		result.Detail = "cancelled"
	default:
		result.Detail = err.Error()
	}
	return result
}
