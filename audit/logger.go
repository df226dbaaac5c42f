// Package audit records authorization decisions taken at the HTTP edge.
package audit

import (
	"context"

	core "github.com/PaulFidika/casting/core"
	"github.com/sirupsen/logrus"
)

// LogrusLogger writes each decision as a structured log line.
type LogrusLogger struct {
	Log logrus.FieldLogger
}

func (l LogrusLogger) LogDecision(_ context.Context, ev core.AuthEvent) error {
	fields := logrus.Fields{
		"request_id": ev.RequestID,
		"method":     ev.Method,
		"path":       ev.Path,
		"outcome":    ev.Outcome,
	}
	if ev.RequiredScope != "" {
		fields["required_scope"] = ev.RequiredScope
	}
	if ev.Subject != "" {
		fields["sub"] = ev.Subject
	}
	entry := l.Log.WithFields(fields)
	if ev.Outcome == core.OutcomeAuthorized {
		entry.Debug("authorization granted")
	} else {
		entry.Info("authorization denied")
	}
	return nil
}

// Fanout sends each event to every logger and returns the first error.
type Fanout []core.AuthEventLogger

func (f Fanout) LogDecision(ctx context.Context, ev core.AuthEvent) error {
	var first error
	for _, l := range f {
		if l == nil {
			continue
		}
		if err := l.LogDecision(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
