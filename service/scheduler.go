package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule runs the scheduling pass shortly after midnight.
const DefaultSchedule = "5 0 * * *"

// Job is a unit of scheduled work. today is the current time in the
// scheduler's location.
type Job func(ctx context.Context, today time.Time) error

type namedJob struct {
	name string
	run  Job
}

// RecurringScheduler runs the ledger's scheduling pass, and any other job
// added to it, on cron schedules.
type RecurringScheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   *logrus.Logger
	jobs     []namedJob
}

func NewRecurringScheduler(
	ledger *LedgerService,
	spec string,
	location *time.Location,
	logger *logrus.Logger,
) (*RecurringScheduler, error) {

	if location == nil {
		location = time.Local
	}
	if spec == "" {
		spec = DefaultSchedule
	}

	s := &RecurringScheduler{
		cron:     cron.New(cron.WithLocation(location)),
		location: location,
		logger:   logger,
	}
	err := s.AddJob(spec, "recurring transactions", func(ctx context.Context, today time.Time) error {
		_, err := ledger.RunSchedulingPass(ctx, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// AddJob registers job under a cron spec. Jobs must be added before Start.
func (s *RecurringScheduler) AddJob(spec, name string, job Job) error {
	j := namedJob{name: name, run: job}
	if _, err := s.cron.AddFunc(spec, func() { s.run(j) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start runs every job once immediately so a missed tick after a restart on
// the due day is not lost, then starts the cron loop.
func (s *RecurringScheduler) Start() {
	for _, j := range s.jobs {
		s.run(j)
	}
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *RecurringScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *RecurringScheduler) run(j namedJob) {
	today := time.Now().In(s.location)
	if err := j.run(context.Background(), today); err != nil {
		s.logger.WithError(err).WithField("job", j.name).Error("scheduled job failed")
		return
	}
	s.logger.WithField("job", j.name).Debug("scheduled job finished")
}
