package app

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	gohttp "github.com/km-arc/go-bootstrap/framework/http"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

// RoutesTag groups the RouteRegistrar bindings mounted by ServerFactory.
const RoutesTag = "http.routes"

// RouteRegistrar adds routes to the application router.
type RouteRegistrar interface {
	RegisterRoutes(r *routing.Router, s *config.Settings)
}

// ServerFactory builds the application's *http.Server from the framework
// settings. It needs the framework configure phase to have run.
type ServerFactory struct {
	framework *routing.Configurator
	root      *container.Container
	cfg       *config.Config

	once   sync.Once
	server *http.Server
	err    error
}

// NewServerFactory returns a ServerFactory over the given framework
// configurator; root is the container request scopes are opened from.
func NewServerFactory(framework *routing.Configurator, root *container.Container, cfg *config.Config) *ServerFactory {
	return &ServerFactory{framework: framework, root: root, cfg: cfg}
}

// Server builds the server on first call and returns the same one after.
// It fails with routing.ErrNotConfigured when the framework was never
// configured.
func (f *ServerFactory) Server() (*http.Server, error) {
	f.once.Do(func() { f.server, f.err = f.build() })
	return f.server, f.err
}

func (f *ServerFactory) build() (*http.Server, error) {
	settings, err := f.framework.Settings()
	if err != nil {
		return nil, err
	}
	router, err := f.framework.Router()
	if err != nil {
		return nil, err
	}

	router.NotFound(notFound)
	router.Get("/healthz", f.health)
	router.Get("/readyz", f.ready)

	registrars, err := f.root.Tagged(RoutesTag)
	if err != nil {
		return nil, err
	}
	for _, r := range registrars {
		if rr, ok := r.(RouteRegistrar); ok {
			rr.RegisterRoutes(router, settings)
		}
	}

	router.Group(func(api *routing.Router) {
		api.Middleware(routing.RequestScope(f.root))
		if f.cfg.App.Debug {
			api.Get("/debug/bindings", f.bindings)
		}
	})

	zap.L().Info("http server built", zap.String("addr", settings.HTTP.Addr), zap.Strings("routes", router.Routes()))
	return &http.Server{
		Addr:         settings.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  settings.HTTP.ReadTimeout,
		WriteTimeout: settings.HTTP.WriteTimeout,
		ErrorLog:     zap.NewStdLog(zap.L()),
	}, nil
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (f *ServerFactory) health(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(map[string]any{
		"status": "ok",
		"app":    f.cfg.App.Name,
		"env":    f.cfg.App.Env,
	})
}

func (f *ServerFactory) ready(w http.ResponseWriter, _ *http.Request) {
	res := gohttp.NewResponse(w)
	checks := map[string]string{}
	if !f.framework.Configured() {
		checks["framework"] = routing.ErrNotConfigured.Error()
	}
	if _, err := f.root.Resolve(ConfigKey); err != nil {
		checks["container"] = err.Error()
	}
	if len(checks) > 0 {
		res.Unavailable(checks)
		return
	}
	res.Success(map[string]any{"status": "ready"})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).NotFound()
}

func (f *ServerFactory) bindings(w http.ResponseWriter, req *http.Request) {
	c, ok := container.FromContext(req.Context())
	if !ok {
		c = f.root
	}
	gohttp.NewResponse(w).Success(Bindings(c))
}
