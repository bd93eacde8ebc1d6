package logger

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BadgerLogger forwards badger's log output to zerolog.
type BadgerLogger struct {
}

func (bl *BadgerLogger) log(level zerolog.Level, msg string, args ...interface{}) {
	log.WithLevel(level).
		Str("component", "badger").
		Msgf(strings.TrimSuffix(msg, "\n"), args...)
}

func (bl *BadgerLogger) Errorf(msg string, args ...interface{}) {
	bl.log(zerolog.ErrorLevel, msg, args...)
}

func (bl *BadgerLogger) Warningf(msg string, args ...interface{}) {
	bl.log(zerolog.WarnLevel, msg, args...)
}

func (bl *BadgerLogger) Infof(msg string, args ...interface{}) {
	bl.log(zerolog.InfoLevel, msg, args...)
}

func (bl *BadgerLogger) Debugf(msg string, args ...interface{}) {
	bl.log(zerolog.DebugLevel, msg, args...)
}
