package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const sweepTimeout = 30 * time.Second

// StatusSweeper периодически запускает открытые турниры, у которых наступила дата старта.
type StatusSweeper struct {
	scheduler   gocron.Scheduler
	tournaments TournamentService
	logger      *slog.Logger
}

func NewStatusSweeper(tournaments TournamentService, interval time.Duration, logger *slog.Logger) (*StatusSweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	sweeper := &StatusSweeper{scheduler: sched, tournaments: tournaments, logger: logger}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			sweeper.Sweep(ctx, time.Now())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register status sweep job: %w", err)
	}
	return sweeper, nil
}

// Sweep выполняет один проход. Экспортирован для тестов и ручного запуска.
func (s *StatusSweeper) Sweep(ctx context.Context, now time.Time) int {
	started, err := s.tournaments.StartDueTournaments(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "status sweep failed", slog.Any("error", err))
		return 0
	}
	if started > 0 {
		s.logger.InfoContext(ctx, "tournaments started by schedule", slog.Int("count", started))
	}
	return started
}

func (s *StatusSweeper) Start() {
	s.scheduler.Start()
}

// Run блокируется до отмены ctx и останавливает планировщик.
func (s *StatusSweeper) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	return s.scheduler.Shutdown()
}
