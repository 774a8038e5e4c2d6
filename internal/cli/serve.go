package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/database"
	"github.com/deppfellow/questionnaire-validator/internal/handler"
	"github.com/deppfellow/questionnaire-validator/internal/logger"
	"github.com/deppfellow/questionnaire-validator/internal/repository"
	"github.com/deppfellow/questionnaire-validator/internal/router"
	"github.com/deppfellow/questionnaire-validator/internal/server"
	"github.com/deppfellow/questionnaire-validator/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the validation workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			loggerService, err := logger.NewLoggerService(cfg.Observability)
			if err != nil {
				return err
			}
			log := logger.NewLoggerWithService(cfg.Observability, loggerService)

			ctx := cmd.Context()

			if !skipMigrations {
				if err := database.Migrate(ctx, &log, database.DSN(cfg.Database), -1); err != nil {
					loggerService.Shutdown()
					return err
				}
			}

			srv, err := server.New(cfg, &log, loggerService)
			if err != nil {
				loggerService.Shutdown()
				return err
			}

			repos := repository.NewRepositories(srv)
			services, err := service.NewService(srv, repos)
			if err != nil {
				_ = srv.Shutdown(context.Background())
				return err
			}

			// Without Redis the API still validates synchronously.
			if err := srv.StartJobs(); err != nil {
				log.Error().Err(err).Msg("failed to start validation workers")
			}

			srv.SetupHTTPServer(router.NewRouter(srv, handler.NewHandlers(srv, services)))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				log.Info().Msg("shutting down server")
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					serveErr = fmt.Errorf("server stopped: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errors.Join(serveErr, err)
			}
			return serveErr
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not migrate the database on startup")
	return cmd
}
