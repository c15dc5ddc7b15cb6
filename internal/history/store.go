package history

import (
	"context"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// Store is a durable home for readings.
//
// List may return readings together with a non-nil error when some stored
// records could not be converted; callers should keep what was returned.
type Store interface {
	Append(ctx context.Context, r greenhouse.Reading) error
	List(ctx context.Context) ([]greenhouse.Reading, error)
}

// Mirror receives a copy of every recorded reading. Writes must not block.
type Mirror interface {
	WriteReading(r greenhouse.Reading)
}

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives adapter counters.
type Metrics interface {
	IncHistoryWrites(result string)
	IncHistoryDropped()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) IncHistoryWrites(string) {}
func (nopMetrics) IncHistoryDropped()      {}
