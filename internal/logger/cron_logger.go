package logger

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

type cronLogger struct {
	log Logger
}

// CronLogger adapts Logger to the logger robfig/cron writes its own events to.
// Cron's info events are noisy (every wake-up) so they go to debug.
func CronLogger(log Logger) cron.Logger {
	return &cronLogger{log: log.With(String("component", "cron"))}
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, pairsToFields(keysAndValues)...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(pairsToFields(keysAndValues), Error(err))...)
}

func pairsToFields(keysAndValues []interface{}) []Field {
	fields := make([]Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, Any(key, keysAndValues[i+1]))
	}
	return fields
}
