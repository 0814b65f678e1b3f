package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rflorenc/catalog-migrator/internal/auth"
	"github.com/rflorenc/catalog-migrator/internal/config"
	"github.com/rflorenc/catalog-migrator/internal/migration"
	"github.com/rflorenc/catalog-migrator/internal/models"
	"github.com/rflorenc/catalog-migrator/internal/platform"
	"github.com/rflorenc/catalog-migrator/internal/store"
)

// app is the state shared by all subcommands once the root has loaded the
// configuration.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "migrator",
		Short:         "Migrate Administrative Templates policies to Settings Catalog",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.log = newLogger(cfg.Log)
			slog.SetDefault(a.log)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(
		a.exportCmd(),
		a.mapCmd(),
		a.migrateCmd(),
		a.rollbackCmd(),
		a.duplicatesCmd(),
		a.serveCmd(),
	)
	return root
}

func newLogger(c config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// client builds the Graph client: HTTP with bearer tokens, then the rate
// limiter, then retries around both.
func (a *app) client(ctx context.Context) (*platform.Client, string, error) {
	g := a.cfg.Graph
	tokens, identity, err := auth.TokenSource(ctx, auth.Options{
		AuthorityURL: g.AuthorityURL,
		TenantID:     g.TenantID,
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		StaticToken:  g.Token,
		Scopes:       g.Scopes,
	})
	if err != nil {
		return nil, "", fmt.Errorf("auth: %w", err)
	}
	var req platform.Requester = platform.NewHTTPRequester(g.BaseURL, tokens, nil)
	req = platform.WithRateLimit(req, a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst)
	req = platform.WithRetry(req, platform.RetryConfig{
		Attempts:  a.cfg.Retry.Attempts,
		BaseDelay: a.cfg.Retry.BaseDelay,
		MaxDelay:  a.cfg.Retry.MaxDelay,
	}, a.log)
	return platform.NewClient(req), identity, nil
}

func (a *app) session(ctx context.Context) (*migration.Session, *platform.Client, error) {
	c, identity, err := a.client(ctx)
	if err != nil {
		return nil, nil, err
	}
	m := a.cfg.Migration
	filter := make([]models.Confidence, 0, len(m.ConfidenceFilter))
	for _, f := range m.ConfidenceFilter {
		filter = append(filter, models.Confidence(f))
	}
	s := &migration.Session{
		Remote: c,
		Store:  a.store(),
		Options: migration.Options{
			MarkerKey:        m.MarkerKey,
			PlatformTokens:   m.PlatformTokens,
			SkipUnmapped:     m.SkipUnmapped,
			MaxCandidates:    m.MaxCandidates,
			ConfidenceFilter: filter,
			NamePrefix:       m.NamePrefix,
			Platforms:        m.Platforms,
			Technologies:     m.Technologies,
		},
		Identity: identity,
	}
	a.log.Info("session ready", "identity", identity, "storage", s.Store.BaseURL())
	return s, c, nil
}

func (a *app) store() *store.Store {
	return store.New(a.cfg.Storage.BaseURL)
}

// offlineSession serves modes that only read saved artifacts and need no
// credentials.
func (a *app) offlineSession() *migration.Session {
	return &migration.Session{Store: a.store()}
}

// printer returns the run logger for CLI modes: lines go to stdout as is.
func printer(cmd *cobra.Command) func(string) {
	out := cmd.OutOrStdout()
	return func(line string) {
		fmt.Fprintln(out, line)
	}
}
