// Package teambackend defines the port for the shared, resource-constrained
// execution backend that periodic team operations run against.
package teambackend

import "context"

// Tier is a qualitative capability class. Each team operation maps to a
// tier, which in turn maps to a configured concrete model.
type Tier string

const (
	TierCreative   Tier = "creative"
	TierAnalytical Tier = "analytical"
	TierRoutine    Tier = "routine"
)

// Request is one call into the shared backend.
type Request struct {
	Operation string
	Model     string
	Prompt    string
}

// Response is the backend's answer.
type Response struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Backend is the rate-limited shared execution backend. Callers must go
// through the team executor queue, never directly.
type Backend interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
