package core

import (
	"context"
	"time"
)

// AuthEvent is one authorization decision taken at the HTTP edge.
type AuthEvent struct {
	At            time.Time `json:"at"`
	RequestID     string    `json:"request_id"`
	Method        string    `json:"method"`
	Path          string    `json:"path"`
	RequiredScope string    `json:"required_scope,omitempty"`
	Subject       string    `json:"subject,omitempty"` // empty unless authorized
	Outcome       string    `json:"outcome"`           // "authorized" or a Kind code
	IP            *string   `json:"ip,omitempty"`
	UserAgent     *string   `json:"user_agent,omitempty"`
}

// OutcomeAuthorized is the AuthEvent.Outcome of a successful decision.
const OutcomeAuthorized = "authorized"

// AuthEventLogger records authorization events to an external sink (e.g., Postgres via a job queue).
// Implementations should be non-blocking and best-effort.
type AuthEventLogger interface {
	LogDecision(ctx context.Context, ev AuthEvent) error
}

// NopEventLogger discards events.
type NopEventLogger struct{}

func (NopEventLogger) LogDecision(context.Context, AuthEvent) error { return nil }
