package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	applogger "AgriPrice/pkg/logger"
)

// RefreshScheduler triggers Refresher on a cron schedule. Specs accept an
// optional leading seconds field.
type RefreshScheduler struct {
	cron    *cron.Cron
	logger  *applogger.Logger
	enabled bool
}

func NewRefreshScheduler(spec string, r *Refresher, timeout time.Duration, logger *applogger.Logger) (*RefreshScheduler, error) {
	s := &RefreshScheduler{logger: logger}
	if spec == "" {
		return s, nil
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := r.Refresh(ctx, "schedule"); err != nil {
			logger.Warn("scheduled refresh failed", applogger.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	s.enabled = true
	return s, nil
}

func (s *RefreshScheduler) Enabled() bool { return s.enabled }

func (s *RefreshScheduler) Start() {
	if s.cron != nil {
		s.cron.Start()
	}
}

// Stop waits for a running refresh to finish or ctx to expire.
func (s *RefreshScheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct{ l *applogger.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(kv)...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(kv), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
