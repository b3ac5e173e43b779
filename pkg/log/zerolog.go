package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter writes Logger messages through a zerolog.Logger.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter logs to stderr through a zerolog.ConsoleWriter.
func NewZerologAdapter() *ZerologAdapter {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return NewZerologAdapterWithLogger(zerolog.New(out).With().Timestamp().Logger())
}

// NewZerologAdapterWithLogger wraps an already configured logger, such as
// the one built from the command line flags.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

func (z *ZerologAdapter) Debug(msg string, fields ...Field) { emit(z.logger.Debug(), msg, fields) }
func (z *ZerologAdapter) Info(msg string, fields ...Field)  { emit(z.logger.Info(), msg, fields) }
func (z *ZerologAdapter) Warn(msg string, fields ...Field)  { emit(z.logger.Warn(), msg, fields) }
func (z *ZerologAdapter) Error(msg string, fields ...Field) { emit(z.logger.Error(), msg, fields) }

// Logger returns the wrapped zerolog.Logger.
func (z *ZerologAdapter) Logger() zerolog.Logger {
	return z.logger
}

// with binds fields into a zerolog child context so they are encoded once
// instead of on every message.
func (z *ZerologAdapter) with(fields []Field) Logger {
	ctx := z.logger.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, fieldValue(f))
	}
	return &ZerologAdapter{logger: ctx.Logger()}
}

// emit is a no-op when the level is disabled, since zerolog then hands out
// a nil event.
func emit(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		event = addField(event, f)
	}
	event.Msg(msg)
}

func addField(event *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case int64:
		return event.Int64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case []byte:
		return event.Bytes(f.Key, v)
	case error:
		return event.AnErr(f.Key, v)
	default:
		return event.Interface(f.Key, v)
	}
}

// fieldValue converts values that encoding/json would render badly.
func fieldValue(f Field) any {
	switch v := f.Value.(type) {
	case []byte:
		return string(v)
	case error:
		if v == nil {
			return nil
		}
		return v.Error()
	default:
		return v
	}
}
