package notify

import (
	"context"

	"github.com/paddockpulse/stablehand/internal/logging"
)

// LogAdapter writes notifications to the service log. Always configured;
// it is the floor every deployment gets even with no external sinks.
type LogAdapter struct {
	log *logging.Logger
}

func NewLogAdapter(log *logging.Logger) *LogAdapter {
	return &LogAdapter{log: log.Sub("notify.log")}
}

func (a *LogAdapter) Name() string { return "log" }

func (a *LogAdapter) Notify(_ context.Context, ev Event) error {
	a.log.Info().
		Str("kind", ev.Kind).
		Str("sessionId", ev.SessionID).
		Msg(ev.Text)
	return nil
}
