// Package scheduler runs periodic housekeeping jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// PresenceSource is the part of the registry the reporter reads.
type PresenceSource interface {
	Online() []core.Presence
}

// PresenceReporter logs who is online on a schedule such as "@every 1m".
type PresenceReporter struct {
	schedule string
	source   PresenceSource
	log      *zerolog.Logger
	cron     *cron.Cron
}

// NewPresenceReporter validates schedule and prepares the reporter.
func NewPresenceReporter(schedule string, source PresenceSource, logger *zerolog.Logger) (*PresenceReporter, error) {
	c := cron.New()
	r := &PresenceReporter{
		schedule: schedule,
		source:   source,
		log:      logger,
		cron:     c,
	}
	if _, err := c.AddFunc(schedule, r.Report); err != nil {
		return nil, fmt.Errorf("parse presence schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for a
// running report to finish.
func (r *PresenceReporter) Run(ctx context.Context) {
	r.cron.Start()
	r.log.Info().Str("schedule", r.schedule).Msg("presence reporter started")

	<-ctx.Done()

	<-r.cron.Stop().Done()
	r.log.Info().Msg("presence reporter stopped")
}

// Report logs a single presence snapshot.
func (r *PresenceReporter) Report() {
	online := r.source.Online()

	names := make([]string, 0, len(online))
	for _, p := range online {
		names = append(names, p.Name)
	}

	r.log.Info().
		Int("online", len(online)).
		Strs("names", names).
		Msg("presence report")
}
