package sessionkit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// sweepTimeout bounds a single DeleteExpired run.
const sweepTimeout = time.Minute

// sweeper periodically removes expired sessions from stores that do not
// expire records on their own.
type sweeper struct {
	cron    *cron.Cron
	cleaner session.Cleaner
	logger  *slog.Logger
}

func newSweeper(cleaner session.Cleaner, schedule string, logger *slog.Logger) (*sweeper, error) {
	cl := cronLogger{logger: logger}
	s := &sweeper{
		cleaner: cleaner,
		logger:  logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.cleaner.DeleteExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "expired session sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed",
			slog.Int64("count", n),
			slog.Duration("took", time.Since(start)),
		)
	}
}

func (s *sweeper) start() {
	s.cron.Start()
}

// stop prevents new runs and waits for a running sweep until ctx is done.
func (s *sweeper) stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's internal messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
