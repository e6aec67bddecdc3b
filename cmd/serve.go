package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/app"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bootstrap the container and serve HTTP until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := bootstrapContainer(ctx, cmd, o)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(context.Background()); err != nil {
					zap.L().Warn("closing container", zap.Error(err))
				}
			}()

			sf, err := container.Resolve[*app.ServerFactory](c, app.HTTPServerFactoryKey)
			if err != nil {
				return err
			}
			srv, err := sf.Server()
			if err != nil {
				return err
			}
			framework, err := container.Resolve[*routing.Configurator](c, app.FrameworkKey)
			if err != nil {
				return err
			}
			settings, err := framework.Settings()
			if err != nil {
				return err
			}
			return serveUntilDone(ctx, srv, settings.HTTP.ShutdownTimeout)
		},
	}
}

// serveUntilDone serves srv until ctx is done, then shuts it down within
// shutdownTimeout.
func serveUntilDone(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	zap.L().Info("http server listening", zap.Stringer("addr", ln.Addr()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.L().Info("http server shutting down", zap.Duration("timeout", shutdownTimeout))
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
