package main

import (
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own messages into the structured logger.
type cronLogger struct {
	logger *logging.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
