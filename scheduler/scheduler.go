package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Sweep — периодическая задача конвейера.
type Sweep struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// SweepStatus — последний известный исход свипа для /status.
type SweepStatus struct {
	Interval  string     `json:"interval"`
	Runs      int        `json:"runs"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Scheduler гоняет каждый свип в собственной горутине по собственному
// интервалу. Первый запуск — сразу при старте, без ожидания тика.
// Если свип ещё выполняется, когда подходит следующий тик, тик
// пропускается, а не ставится в очередь.
type Scheduler struct {
	sweeps []Sweep
	logger *slog.Logger

	mu     sync.Mutex
	status map[string]*SweepStatus
}

func New(logger *slog.Logger, sweeps ...Sweep) *Scheduler {
	status := make(map[string]*SweepStatus, len(sweeps))
	for _, sweep := range sweeps {
		status[sweep.Name] = &SweepStatus{Interval: sweep.Interval.String()}
	}
	return &Scheduler{sweeps: sweeps, logger: logger, status: status}
}

// Run блокируется до отмены контекста. Отмена останавливает все свипы;
// начатый свип дорабатывает до ближайшей проверки контекста.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sweep := range s.sweeps {
		g.Go(func() error {
			s.loop(ctx, sweep)
			return nil
		})
	}
	return g.Wait()
}

// Status — снимок последних исходов всех свипов.
func (s *Scheduler) Status() map[string]SweepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]SweepStatus, len(s.status))
	for name, st := range s.status {
		snapshot[name] = *st
	}
	return snapshot
}

func (s *Scheduler) loop(ctx context.Context, sweep Sweep) {
	s.logger.Info("sweep scheduled",
		slog.String("sweep", sweep.Name),
		slog.Duration("interval", sweep.Interval))

	s.execute(ctx, sweep)

	ticker := time.NewTicker(sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep stopped", slog.String("sweep", sweep.Name))
			return
		case <-ticker.C:
			s.execute(ctx, sweep)
			// Тик, накопившийся за время долгого свипа, сбрасывается:
			// пропуск, а не очередь.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, sweep Sweep) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now().UTC()
	err := s.runGuarded(ctx, sweep)

	s.mu.Lock()
	st := s.status[sweep.Name]
	st.Runs++
	st.LastRun = &started
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
	s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		s.logger.Error("sweep failed",
			slog.String("sweep", sweep.Name),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err))
	}
}

// runGuarded изолирует панику свипа: упавший sync не должен ронять
// процесс и enrichment вместе с собой.
func (s *Scheduler) runGuarded(ctx context.Context, sweep Sweep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep %s panicked: %v", sweep.Name, r)
		}
	}()
	return sweep.Run(ctx)
}
