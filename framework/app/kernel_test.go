package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/app"
	"github.com/km-arc/go-bootstrap/framework/bootstrap"
	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type registryStub struct {
	calls int
}

func (r *registryStub) Register(c *container.Container) error {
	r.calls++
	return c.Register(container.Name("Svc"), func(*container.Container) (any, error) { return &struct{ n int }{}, nil }, container.Singleton)
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "kernel-test", Env: "testing", SettingsModule: "configs.app"},
		Log:     config.LogConfig{Level: "error", Format: "json"},
		Tracing: config.TracingConfig{ServiceName: "kernel-test", SampleRatio: 1},
		Bootstrap: config.BootstrapConfig{
			ConfigureFramework:  true,
			ConfigureLogging:    true,
			InstrumentLibraries: true,
		},
	}
}

func settingsRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "configs", "app.yaml"), []byte("http:\n  addr: \":0\"\n"), 0o600))
	return root
}

// ── OptionsFromConfig ────────────────────────────────────────────────────────

func TestOptionsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Bootstrap.InstrumentLibraries = false
	cfg.App.SettingsModule = "configs.prod"

	opts := app.OptionsFromConfig(cfg)

	assert.Equal(t, bootstrap.Options{
		ConfigureFramework:  true,
		ConfigureLogging:    true,
		InstrumentLibraries: false,
		RegisterServices:    true,
		SettingsModule:      "configs.prod",
	}, opts)
}

// ── Build ────────────────────────────────────────────────────────────────────

func TestBuild_AllFlagsOff_EmptyContainer(t *testing.T) {
	reg := &registryStub{}
	f := app.NewContainerFactory(testConfig(), reg)

	c, err := f.Build(context.Background(), bootstrap.Options{})

	require.NoError(t, err)
	assert.Empty(t, c.Keys())
	assert.Zero(t, reg.calls)
}

func TestBuild_FullBootstrap(t *testing.T) {
	prevLogger := zap.L()
	prevTP := otel.GetTracerProvider()
	reg := &registryStub{}
	f := app.NewContainerFactory(testConfig(), reg, app.WithSettingsRoots(settingsRoot(t)))

	c, err := f.Build(context.Background(), bootstrap.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, reg.calls)
	assert.True(t, c.Bound(container.Name("Svc")))
	fw := container.MustResolve[*routing.Configurator](c, bootstrap.FrameworkConfiguratorKey)
	assert.True(t, fw.Configured())
	assert.NotSame(t, prevLogger, zap.L(), "logging phase replaced the global logger")
	assert.NotEqual(t, prevTP, otel.GetTracerProvider(), "instrument phase replaced the tracer provider")

	require.NoError(t, c.Close(context.Background()))
	assert.Same(t, prevLogger, zap.L(), "Close restores the global logger")
	assert.Equal(t, prevTP, otel.GetTracerProvider(), "Close restores the tracer provider")
}

func TestBuild_FailureClosesPartialContainer(t *testing.T) {
	prevLogger := zap.L()
	cfg := testConfig()
	cfg.Tracing.SampleRatio = 2
	reg := &registryStub{}
	f := app.NewContainerFactory(cfg, reg, app.WithSettingsRoots(settingsRoot(t)))

	c, err := f.Build(context.Background(), bootstrap.DefaultOptions())

	require.Error(t, err)
	assert.Nil(t, c)
	var pe *bootstrap.PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, bootstrap.PhaseInstrumentLibraries, pe.Phase)
	assert.Zero(t, reg.calls, "register-services never ran")
	assert.Same(t, prevLogger, zap.L(), "logging phase was undone")
}

func TestBuild_InvalidSettingsModule(t *testing.T) {
	f := app.NewContainerFactory(testConfig(), &registryStub{}, app.WithSettingsRoots(t.TempDir()))
	opts := bootstrap.DefaultOptions()
	opts.SettingsModule = "not a module"

	_, err := f.Build(context.Background(), opts)

	assert.ErrorIs(t, err, bootstrap.ErrBootstrapPhase)
	assert.ErrorIs(t, err, config.ErrInvalidSettingsModule)
}

func TestBuild_StrictContainerOption(t *testing.T) {
	reg := &registryStub{}
	f := app.NewContainerFactory(testConfig(), reg, app.WithContainerOptions(container.WithStrictRegistration()))

	c, err := f.Build(context.Background(), bootstrap.Options{RegisterServices: true})
	require.NoError(t, err)

	err = c.Register(container.Name("Svc"), func(*container.Container) (any, error) { return nil, nil }, container.Singleton)
	assert.ErrorIs(t, err, container.ErrDuplicateRegistration)
}

func TestBuild_NilRegistryNeedsPreboundCollaborator(t *testing.T) {
	f := app.NewContainerFactory(testConfig(), nil)

	_, err := f.Build(context.Background(), bootstrap.Options{RegisterServices: true})

	assert.ErrorIs(t, err, container.ErrUnregisteredService)
}
