package chrono

import (
	"partwatch/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

// CronAPI schedules callbacks on a cron spec.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron runs jobs in KST on robfig/cron. A job that is still running when its
// next activation comes around is skipped rather than stacked.
type StandardCron struct {
	cron *cron.Cron
}

func NewStandardCron(tel telemetry.API) StandardCron {
	logger := cronLogger{tel: telemetry.NewScopedAPI("cron", tel)}
	cronner := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(kst),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	cronner.Start()

	return StandardCron{cron: cronner}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Stop stops the scheduler and waits for in-flight jobs.
func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger forwards robfig/cron's logr style logging to telemetry.
type cronLogger struct {
	tel telemetry.API
}

func kvs(keysAndValues []any) []any {
	params := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		params = append(params, telemetry.KV{Key: key, Value: keysAndValues[i+1]})
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(msg, kvs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken("job", append([]any{err, msg}, kvs(keysAndValues)...)...)
}
