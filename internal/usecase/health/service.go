// Package health aggregates component liveness into one report.
package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult is an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Report aggregates component check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	provider  ProviderChecker
	blocklist BlocklistPinger
}

// New creates a health service. provider and blocklist can be nil when not
// configured.
func New(store StorePinger, provider ProviderChecker, blocklist BlocklistPinger) *Service {
	return &Service{store: store, provider: provider, blocklist: blocklist}
}

// Check runs health checks against all configured components. Any failing
// component degrades the overall status; the service keeps serving either
// way.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["vector_store"] = resolve(s.store.Ping(ctx))

	if s.provider != nil {
		checks["provider"] = resolve(s.provider.HealthCheck(ctx))
	}
	if s.blocklist != nil {
		checks["blocklist"] = resolve(s.blocklist.Ping(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func resolve(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
