package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-bootstrap/app"
	kernel "github.com/km-arc/go-bootstrap/framework/app"
	"github.com/km-arc/go-bootstrap/framework/bootstrap"
	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const settingsYAML = `
http:
  addr: "127.0.0.1:0"
middleware:
  tracing: false
  request_log: false
metrics:
  enabled: true
  path: /metrics
`

func settingsRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "configs", "app.yaml"), []byte(settingsYAML), 0o600))
	return root
}

func testConfig(debug bool) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "bootstrapd-test", Env: "testing", Debug: debug, SettingsModule: "configs.app"},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
}

func frameworkOnly() bootstrap.Options {
	return bootstrap.Options{ConfigureFramework: true, RegisterServices: true, SettingsModule: "configs.app"}
}

func build(t *testing.T, cfg *config.Config, opts bootstrap.Options) *container.Container {
	t.Helper()
	f := kernel.NewContainerFactory(cfg, app.NewRegistry(cfg), kernel.WithSettingsRoots(settingsRoot(t)))
	c, err := f.Build(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func serve(t *testing.T, c *container.Container) http.Handler {
	t.Helper()
	sf, err := container.Resolve[*app.ServerFactory](c, app.HTTPServerFactoryKey)
	require.NoError(t, err)
	srv, err := sf.Server()
	require.NoError(t, err)
	return srv.Handler
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_HTTPServerFactoryIsDeferred(t *testing.T) {
	c := build(t, testConfig(false), frameworkOnly())

	assert.True(t, c.Bound(app.HTTPServerFactoryKey))
	assert.False(t, c.Resolved(app.ServerFactoryKey), "not built before first use")

	byName := c.Make(app.HTTPServerFactoryKey)
	byType := c.Make(app.ServerFactoryKey)
	assert.Same(t, byName, byType)
}

func TestRegistry_SharesBootstrapConfigurator(t *testing.T) {
	c := build(t, testConfig(false), frameworkOnly())

	fw := container.MustResolve[*routing.Configurator](c, app.FrameworkKey)
	boot := c.Make(bootstrap.FrameworkConfiguratorKey)

	assert.Same(t, boot, fw)
	assert.True(t, fw.Configured())
}

// ── ServerFactory ────────────────────────────────────────────────────────────

func TestServerFactory_HealthAndReady(t *testing.T) {
	h := serve(t, build(t, testConfig(false), frameworkOnly()))

	rr := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "bootstrapd-test", body.Data["app"])

	assert.Equal(t, http.StatusOK, get(t, h, "/readyz").Code)
}

func TestServerFactory_ReadyFailsAfterClose(t *testing.T) {
	c := build(t, testConfig(false), frameworkOnly())
	h := serve(t, c)

	require.NoError(t, c.Close(context.Background()))

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/readyz").Code)
}

func TestServerFactory_Metrics(t *testing.T) {
	c := build(t, testConfig(false), frameworkOnly())
	h := serve(t, c)

	rr := get(t, h, "/metrics")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `container_resolutions_total{key="name:HTTPServerFactory"`)
}

func TestServerFactory_ServerIsBuiltOnce(t *testing.T) {
	c := build(t, testConfig(false), frameworkOnly())
	sf := container.MustResolve[*app.ServerFactory](c, app.ServerFactoryKey)

	a, err := sf.Server()
	require.NoError(t, err)
	b, err := sf.Server()
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "127.0.0.1:0", a.Addr)
}

func TestServerFactory_WithoutFrameworkPhase(t *testing.T) {
	opts := frameworkOnly()
	opts.ConfigureFramework = false
	c := build(t, testConfig(false), opts)

	sf := container.MustResolve[*app.ServerFactory](c, app.HTTPServerFactoryKey)
	_, err := sf.Server()

	assert.ErrorIs(t, err, routing.ErrNotConfigured)
}

func TestServerFactory_DebugBindings(t *testing.T) {
	h := serve(t, build(t, testConfig(true), frameworkOnly()))

	rr := get(t, h, "/debug/bindings")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(routing.RequestIDHeader))
	var body struct {
		Data []app.Binding `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	keys := make([]string, 0, len(body.Data))
	for _, b := range body.Data {
		keys = append(keys, b.Key)
	}
	assert.Contains(t, keys, "name:HTTPServerFactory")
}

func TestServerFactory_BindingsHiddenWithoutDebug(t *testing.T) {
	h := serve(t, build(t, testConfig(false), frameworkOnly()))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/debug/bindings").Code)
}

func TestServerFactory_UnknownRouteIsJSON404(t *testing.T) {
	h := serve(t, build(t, testConfig(false), frameworkOnly()))

	rr := get(t, h, "/nope")

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "Not found.", body["message"])
}

// ── Bindings ─────────────────────────────────────────────────────────────────

func TestBindings(t *testing.T) {
	c := container.New()
	c.Singleton(container.Name("b"), func(*container.Container) (any, error) { return 1, nil })
	c.Bind(container.Name("a"), func(*container.Container) (any, error) { return 2, nil })
	c.Make(container.Name("b"))

	got := app.Bindings(c)

	assert.Equal(t, []app.Binding{
		{Key: "name:a", Lifetime: "transient", Resolved: false},
		{Key: "name:b", Lifetime: "singleton", Resolved: true},
	}, got)
}
