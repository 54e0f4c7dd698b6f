package worker

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger adapts slog to cron.Logger. A tick dropped by
// cron.SkipIfStillRunning is logged as a warning and counted as a
// "skipped" run, so a sync that outlasts the cron interval is visible.
type CronLogger struct {
	logger  *slog.Logger
	metrics *WorkerMetrics
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCronLogger creates a CronLogger. metrics may be nil.
func NewCronLogger(logger *slog.Logger, metrics *WorkerMetrics) *CronLogger {
	return &CronLogger{logger: logger, metrics: metrics}
}

// Info receives cron's routine messages. Only "skip" is worth a warning.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		if l.metrics != nil {
			l.metrics.RecordJobRun("skipped")
		}
		l.logger.Warn("sync tick skipped, previous sync still running")
		return
	}
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

// Error logs failures reported by cron, such as recovered panics.
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
