package logs

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

type jsonLogger struct {
	l zerolog.Logger
}

//NewJSONLogger a Logger writing one JSON object per line through zerolog
func NewJSONLogger(writer io.Writer, logLevel LogLevel) Logger {
	l := zerolog.New(writer).
		Level(zerologLevel(logLevel)).
		With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1).
		Logger()
	return &jsonLogger{l: l}
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

func (j *jsonLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	j.l.Debug().Msgf(msg, args...)
}

func (j *jsonLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	j.l.Info().Msgf(msg, args...)
}

func (j *jsonLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	j.l.Warn().Msgf(msg, args...)
}

func (j *jsonLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	j.l.Error().Msgf(msg, args...)
}
