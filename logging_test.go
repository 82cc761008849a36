package ecs_test

import (
	"testing"

	ecs "github.com/kestrelgames/ecsapp"
	"github.com/stretchr/testify/require"
)

func TestNewZapLoggerBuildsAtRequestedLevel(t *testing.T) {
	logger, err := ecs.NewZapLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, logger)

	// With must return an independent Logger carrying the extra field,
	// rather than mutating the receiver.
	scoped := logger.With("component", "test")
	require.NotNil(t, scoped)

	logger.Info("hello")
	logger.Warn("careful")
	logger.Error("oops")
	scoped.Info("scoped hello")
}

func TestNewZapLoggerFallsBackToInfoOnUnknownLevel(t *testing.T) {
	logger, err := ecs.NewZapLogger("not-a-real-level")
	require.NoError(t, err)
	require.NotNil(t, logger)
}
