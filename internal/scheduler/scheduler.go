package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the daily admin report on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error

	mu      sync.Mutex
	running bool
}

// New creates a scheduler evaluating specs in UTC.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report job under spec and starts the cron loop.
// An empty spec or a missing report function leaves the scheduler idle.
func (s *Scheduler) Start(spec string) error {
	if s.reportFunc == nil {
		log.Println("⚠️ Report function not set, scheduler will not generate reports")
		return nil
	}
	if spec == "" {
		log.Println("📅 Report schedule is empty, daily reports disabled")
		return nil
	}

	_, err := s.cron.AddFunc(spec, s.runReport)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	log.Printf("📅 Scheduler started, daily reports at %q UTC", spec)
	return nil
}

func (s *Scheduler) runReport() {
	log.Println("🕘 Triggered daily report generation")
	if err := s.reportFunc(s.ctx); err != nil {
		log.Printf("❌ Daily report generation failed: %v", err)
	}
}

// Stop waits for a running job to finish and cancels its context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	if wasRunning {
		<-s.cron.Stop().Done()
	}
	s.cancel()
	log.Println("📅 Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && len(s.cron.Entries()) > 0
}
