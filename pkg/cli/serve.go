package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetdesk/rentalconsole/pkg/cli/config"
	httpctrl "github.com/fleetdesk/rentalconsole/pkg/controller/http"
	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server
const shutdownTimeout = 10 * time.Second

func cmdServe(version string) *cli.Command {
	var addr string
	var allowOrigins []string
	var apiCfg config.API
	var repoCfg config.Repository
	var uploadCfg config.Upload
	var resourcesCfg config.Resources

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RENTALCONSOLE_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:        "allow-origin",
			Usage:       "Origin pattern accepted for tracking websockets (e.g. console.example.com)",
			Sources:     cli.EnvVars("RENTALCONSOLE_ALLOW_ORIGIN"),
			Destination: &allowOrigins,
		},
	}

	flags = append(flags, apiCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, uploadCfg.Flags()...)
	flags = append(flags, resourcesCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the console HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			catalog, err := resourcesCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load resource catalogue")
			}

			client, err := apiCfg.Configure(version)
			if err != nil {
				return err
			}
			logging.Default().Info("Using rental API", "api", apiCfg)

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			targets, closeTargets, err := uploadCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize upload targets")
			}
			defer closeTargets()

			uc := usecase.New(repo, client,
				usecase.WithCatalog(catalog),
				usecase.WithUploadTargets(targets),
			)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)

			// Request contexts derive from ctx so open tracking websockets
			// end their sessions on shutdown
			handler := httpctrl.New(uc, httpctrl.WithAllowedOrigins(allowOrigins))
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			eg.Go(func() error {
				logging.Default().Info("Starting HTTP server", "addr", addr, "resources", len(catalog.Resources))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server")
				}
				return nil
			})
			eg.Go(func() error {
				<-ctx.Done()
				logging.Default().Info("Shutting down HTTP server")

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				// the deferred repo.Close must not run before tracking
				// sessions have reset their activity flags
				if err := handler.DrainTracking(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to drain tracking connections")
				}
				return nil
			})

			if err := eg.Wait(); err != nil {
				return err
			}
			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}
