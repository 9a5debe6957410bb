package archive

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the publish sweep every ten minutes
const DefaultSweepSchedule = "*/10 * * * *"

// sweepTimeout bounds one full sweep pass
const sweepTimeout = 2 * time.Minute

// Sweeper periodically publishes verified records that are still missing a
// publish reference, picking up records whose earlier publish attempt failed
type Sweeper struct {
	cron    *cron.Cron
	service *Service
}

// NewSweeper schedules the publish sweep with a cron expression
func NewSweeper(service *Service, schedule string) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &Sweeper{
		cron:    cron.New(),
		service: service,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins the sweep schedule
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule; a running sweep finishes its pass
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	published, err := s.service.Sweep(ctx)
	if err != nil {
		log.Printf("[SWEEP]: sweep pass failed: %v", err)
		return
	}

	if published > 0 {
		log.Printf("[SWEEP]: published %d pending record(s)", published)
	}
}
