package usecase

import (
	"context"
	"sort"
	"time"
)

// HealthCheck checks one dependency. A nil check marks the dependency as
// not configured.
type HealthCheck func(ctx context.Context) error

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

type healthUsecase struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthUsecase(checks map[string]HealthCheck) HealthUsecase {
	return &healthUsecase{checks: checks, timeout: 2 * time.Second}
}

// Check reports "ok" or "degraded" overall plus one entry per dependency.
func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	result := map[string]string{"status": "ok"}

	names := make([]string, 0, len(u.checks))
	for name := range u.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := u.checks[name]
		if check == nil {
			result[name] = "disabled"
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, u.timeout)
		err := check(cctx)
		cancel()
		if err != nil {
			result[name] = "unavailable"
			result["status"] = "degraded"
			continue
		}
		result[name] = "ok"
	}
	return result
}
