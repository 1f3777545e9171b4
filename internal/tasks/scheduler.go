package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
)

const scheduleDispatchTimeout = 10 * time.Second

// Scheduler dispatches recreate_index on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	log        logger.Logger
}

// NewScheduler parses spec (5-field cron or a descriptor such as "@daily")
// and registers the rebuild entry. The scheduler is idle until Start.
func NewScheduler(spec string, dispatcher Dispatcher, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Scheduler{
		cron:       cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		dispatcher: dispatcher,
		log:        log,
	}

	if _, err := s.cron.AddFunc(spec, s.dispatchRebuild); err != nil {
		return nil, fmt.Errorf("invalid rebuild schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Rebuild scheduler started", logger.Any("next_run", s.NextRun()))
}

// Stop stops the cron loop and waits for a running dispatch to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Rebuild scheduler stopped")
}

// NextRun returns the next scheduled rebuild, or the zero time before Start.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) dispatchRebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), scheduleDispatchTimeout)
	defer cancel()

	task, err := RecreateIndex()
	if err == nil {
		err = s.dispatcher.Dispatch(ctx, task)
	}
	if err != nil {
		s.log.Error("Failed to dispatch scheduled rebuild", logger.Error(err))
		return
	}
	s.log.Info("Scheduled rebuild dispatched")
}
