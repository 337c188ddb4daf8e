package chatrelay

import (
	"fmt"
	"log"
)

// SLogger is the relay logging interface. Debug lines are only written when debug is enabled
type SLogger interface {
	Printf(format string, v ...interface{})

	Debugf(format string, v ...interface{})
}

type sLogger struct {
	logger *log.Logger
	debug  bool
}

// NewSLogger creates a new relay logger writing to the standard library logger
func NewSLogger(log *log.Logger, debug bool) (l SLogger) {
	return &sLogger{logger: log, debug: debug}
}

// Debugf logs a line if debug is enabled
func (sl *sLogger) Debugf(format string, v ...interface{}) {
	if sl.debug {
		sl.logger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Printf logs a line by delegating the call to Output
func (sl *sLogger) Printf(format string, v ...interface{}) {
	sl.logger.Output(2, fmt.Sprintf(format, v...))
}
