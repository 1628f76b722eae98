package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	logger := newLogger("debug")
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = newLogger("error")
	assert.Equal(t, zerolog.ErrorLevel, logger.GetLevel())
}

func TestNewLoggerBadLevelFallsBackToInfo(t *testing.T) {
	logger := newLogger("noisy")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
