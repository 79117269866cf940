// Package tracking serves the public open/click endpoint, builds the tracking
// links embedded in outgoing mail, and moves tracking events through SQS.
package tracking

import (
	"context"

	"github.com/ignite/outbound/internal/domain"
)

// Recorder persists one analytics event.
type Recorder interface {
	Record(ctx context.Context, evt domain.AnalyticsEvent) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, evt domain.AnalyticsEvent) error

func (f RecorderFunc) Record(ctx context.Context, evt domain.AnalyticsEvent) error {
	return f(ctx, evt)
}
