package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rflorenc/catalog-migrator/internal/api"
	"github.com/rflorenc/catalog-migrator/internal/matcher"
	"github.com/rflorenc/catalog-migrator/internal/models"
)

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for running modes and curating the mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := runContext(cmd)
			defer stop()
			s, c, err := a.session(ctx)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			if err := c.Ping(ctx); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  PING FAILED: %v\n", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  PING OK: %s\n", s.Identity)
			}

			server := &api.Server{
				Jobs:    models.NewJobStore(),
				Session: s,
				Graph:   c,
				Matcher: matcher.New(c, matcher.Options{
					MaxCandidates:  s.Options.MaxCandidates,
					PlatformTokens: s.Options.PlatformTokens,
					CacheSize:      1024,
				}, nil),
				Log: a.log,
			}
			srv := &http.Server{Addr: listen, Handler: api.NewRouter(server)}

			fmt.Fprintf(cmd.OutOrStdout(), "Catalog migrator %s starting on %s\n", version, listen)
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}
