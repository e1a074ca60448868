package subscription

import (
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// FiberLogger satisfies Logger with the application's fiber logger.
type FiberLogger struct{}

// NewFiberLogger returns the default process-wide logger adapter.
func NewFiberLogger() FiberLogger {
	return FiberLogger{}
}

func (FiberLogger) Infow(msg string, keysAndValues ...interface{}) {
	fiberlog.Infow(msg, keysAndValues...)
}

func (FiberLogger) Warnw(msg string, keysAndValues ...interface{}) {
	fiberlog.Warnw(msg, keysAndValues...)
}

func (FiberLogger) Errorw(msg string, keysAndValues ...interface{}) {
	fiberlog.Errorw(msg, keysAndValues...)
}
