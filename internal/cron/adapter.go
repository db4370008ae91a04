package cron

import (
	"fmt"

	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/robfig/cron/v3"
)

// cronLogger routes robfig/cron's internal logging through our logger.
// Routine scheduling chatter is demoted to debug.
type cronLogger struct {
	logger *logger.Logger
}

var _ cron.Logger = cronLogger{}

func newCronLogger(log *logger.Logger) cronLogger {
	return cronLogger{logger: log.With(logger.Field{Key: "component", Value: "cron"})}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, err, toFields(keysAndValues)...)
}

func toFields(keysAndValues []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logger.Field{Key: fmt.Sprint(keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}
