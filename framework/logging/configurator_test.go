package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-bootstrap/framework/config"
)

func newTestConfigurator(t *testing.T, lc config.LogConfig) (*Configurator, *observer.ObservedLogs, *int) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	builds := 0
	c := NewConfigurator(&config.Config{App: config.AppConfig{Name: "svc", Env: "testing"}, Log: lc})
	c.build = func(zap.Config) (*zap.Logger, error) {
		builds++
		return zap.New(core), nil
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, logs, &builds
}

func TestConfigure_ReplacesGlobals(t *testing.T) {
	before := zap.L()
	c, logs, _ := newTestConfigurator(t, config.LogConfig{Level: "debug", Format: "json"})

	require.NoError(t, c.Configure())
	assert.NotSame(t, before, zap.L())

	zap.L().Info("hello")
	entries := logs.FilterMessage("hello").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "svc", fields["app"])
	assert.Equal(t, "testing", fields["env"])
}

func TestConfigure_Idempotent(t *testing.T) {
	c, _, builds := newTestConfigurator(t, config.LogConfig{Level: "info"})

	require.NoError(t, c.Configure())
	first := c.Logger()
	require.NoError(t, c.Configure())

	assert.Equal(t, 1, *builds)
	assert.Same(t, first, c.Logger())
}

func TestConfigure_InvalidLevel(t *testing.T) {
	c, _, builds := newTestConfigurator(t, config.LogConfig{Level: "loud"})

	assert.Error(t, c.Configure())
	assert.Zero(t, *builds)
}

func TestConfigure_UnknownFormat(t *testing.T) {
	c, _, _ := newTestConfigurator(t, config.LogConfig{Level: "info", Format: "xml"})

	err := c.Configure()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestConfigure_BuildError(t *testing.T) {
	c, _, _ := newTestConfigurator(t, config.LogConfig{Level: "info"})
	boom := errors.New("no sink")
	c.build = func(zap.Config) (*zap.Logger, error) { return nil, boom }

	assert.ErrorIs(t, c.Configure(), boom)
}

func TestClose_RestoresGlobals(t *testing.T) {
	before := zap.L()
	c, _, _ := newTestConfigurator(t, config.LogConfig{Level: "warn", Format: "console"})

	require.NoError(t, c.Configure())
	require.NoError(t, c.Close())

	assert.Same(t, before, zap.L())
	assert.Same(t, before, c.Logger(), "Logger falls back to the global before Configure")
}

func TestZapConfig_Level(t *testing.T) {
	c := NewConfigurator(&config.Config{Log: config.LogConfig{Level: "WARN", Format: "console"}})

	zc, err := c.zapConfig()

	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, zc.Level.Level())
	assert.Equal(t, "console", zc.Encoding)
}
