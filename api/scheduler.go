/*
scheduler.go - Periodic overdue sweep

PURPOSE:
  Periodically flags pending contributions whose period has ended as overdue
  and reports disbursed loans that are past their term.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Each contribution is flagged in its own transaction; rows changed
    concurrently are skipped and picked up by the next run
  - Overdue loans are only reported (logged), never transitioned

CONFIGURATION:
  - Interval: How often to sweep (default: 1 hour)
  - Enabled: Whether the scheduler runs (default: true)

USAGE:
  scheduler := NewSweepScheduler(service, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual sweep)
  - welfare/contribution_service.go: MarkOverdueContributions
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// SweepResult is what one sweep did.
type SweepResult struct {
	AsOf                 string  `json:"as_of"`
	OverdueContributions int     `json:"overdue_contributions"`
	OverdueLoans         []int64 `json:"overdue_loans"`
}

// RunSweep marks overdue contributions and lists overdue loans as of asOf.
func RunSweep(ctx context.Context, svc *welfare.Service, asOf time.Time) (SweepResult, error) {
	result := SweepResult{AsOf: generic.FormatDate(asOf), OverdueLoans: []int64{}}

	marked, err := svc.MarkOverdueContributions(ctx, asOf)
	result.OverdueContributions = marked
	if err != nil {
		return result, err
	}

	loans, err := svc.OverdueLoans(ctx, asOf)
	if err != nil {
		return result, err
	}
	for _, l := range loans {
		result.OverdueLoans = append(result.OverdueLoans, l.ID)
	}
	return result, nil
}

// SweepScheduler runs RunSweep on a ticker.
type SweepScheduler struct {
	Service  *welfare.Service
	Logger   *slog.Logger
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a scheduler with the default interval.
func NewSweepScheduler(svc *welfare.Service, logger *slog.Logger) *SweepScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepScheduler{
		Service:  svc,
		Logger:   logger,
		Interval: time.Hour,
		Enabled:  true,
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("sweep scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Logger.Info("sweep scheduler started", "interval", s.Interval.String())
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("sweep scheduler stopped")
}

func (s *SweepScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	s.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-stop:
			return
		}
	}
}

func (s *SweepScheduler) sweep(ctx context.Context) {
	asOf := s.Service.Now()
	result, err := RunSweep(ctx, s.Service, asOf)
	if err != nil {
		s.Logger.Error("sweep failed", "as_of", result.AsOf, "error", err)
		return
	}
	if len(result.OverdueLoans) > 0 {
		s.Logger.Warn("overdue loans", "as_of", result.AsOf, "count", len(result.OverdueLoans),
			"loan_ids", result.OverdueLoans)
	}
	s.Logger.Debug("sweep complete", "as_of", result.AsOf,
		"overdue_contributions", result.OverdueContributions)
}
