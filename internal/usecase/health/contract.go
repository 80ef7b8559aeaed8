package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks model provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// BlocklistPinger checks the blocked-content database.
type BlocklistPinger interface {
	Ping(ctx context.Context) error
}
