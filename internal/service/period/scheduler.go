package period

import (
	"context"
	"log"
	"time"

	"github.com/iamasit07/glicko2-ratings/internal/service/rating"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule closes a period every day at midnight
const DefaultSchedule = "0 0 0 * * *"

const closeTimeout = 2 * time.Minute

type PeriodCloser interface {
	ClosePeriod(ctx context.Context) (*rating.PeriodSummary, error)
}

type Scheduler struct {
	cron     *cron.Cron
	closer   PeriodCloser
	schedule string
}

func NewScheduler(closer PeriodCloser, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	// seconds precision, with cron's own logs going through the standard logger
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cron.VerbosePrintfLogger(log.Default())))

	return &Scheduler{
		cron:     c,
		closer:   closer,
		schedule: schedule,
	}
}

// Start registers the period close job and starts the scheduler
func (s *Scheduler) Start() error {
	log.Printf("[PERIOD] Starting scheduler with schedule %q", s.schedule)

	if _, err := s.cron.AddFunc(s.schedule, s.runClose); err != nil {
		log.Printf("[PERIOD] Error scheduling period close job: %v", err)
		return err
	}

	s.cron.Start()
	log.Println("[PERIOD] Scheduler started")
	return nil
}

// Stop waits for a running close job to finish
func (s *Scheduler) Stop() {
	log.Println("[PERIOD] Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Println("[PERIOD] Scheduler stopped")
}

// Next returns when the close job fires next, or the zero time before Start
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runClose() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	summary, err := s.closer.ClosePeriod(ctx)
	if err != nil {
		log.Printf("[PERIOD] Error closing rating period: %v", err)
		return
	}
	log.Printf("[PERIOD] Scheduled close of period %d done (%d games)", summary.ClosedPeriodID, summary.Games)
}

// RunNow triggers the close job outside the schedule
func (s *Scheduler) RunNow() {
	log.Println("[PERIOD] Manually triggering period close...")
	s.runClose()
}
