package queue

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

var _ asynq.Logger = Logger{}

// Logger adapts zerolog to asynq.Logger.
type Logger struct {
	z zerolog.Logger
}

// NewLogger tags entries with the asynq component.
func NewLogger(z zerolog.Logger) Logger {
	return Logger{z: z.With().Str("component", "asynq").Logger()}
}

func (l Logger) Debug(args ...interface{}) { l.z.Debug().Msg(fmt.Sprint(args...)) }
func (l Logger) Info(args ...interface{})  { l.z.Info().Msg(fmt.Sprint(args...)) }
func (l Logger) Warn(args ...interface{})  { l.z.Warn().Msg(fmt.Sprint(args...)) }
func (l Logger) Error(args ...interface{}) { l.z.Error().Msg(fmt.Sprint(args...)) }
func (l Logger) Fatal(args ...interface{}) { l.z.Fatal().Msg(fmt.Sprint(args...)) }
