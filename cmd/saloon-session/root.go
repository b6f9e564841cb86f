package main

import (
	"context"
	"os"

	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/sandunudayakantha/saloon-auth/activitymap"
	"github.com/sandunudayakantha/saloon-auth/config"
	"github.com/sandunudayakantha/saloon-auth/provider/memory"
	"github.com/sandunudayakantha/saloon-auth/repository"
	"github.com/sandunudayakantha/saloon-auth/tenant"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	env        string
	configDirs []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "saloon-session",
		Short: "Session and shop context engine for the saloon booking app",
		Long: `saloon-session wires the session manager, identity provisioning, role
resolution and the shop registry against an sqlite record store and an
in-process identity provider.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.env, "env", "development", "config environment, loads <env>.yaml")
	cmd.PersistentFlags().StringSliceVar(&opts.configDirs, "config-dir", []string{"config"}, "directories searched for the config file")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newDemoCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// app holds the wired engine for one command run
type app struct {
	cfg      *config.Config
	loggers  auth.LoggerProvider
	logger   auth.Logger
	db       *repository.Persistence
	repos    repository.Manager
	provider *memory.Provider
	sessions *auth.SessionManager
	registry *tenant.Registry
	closer   func() error
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.env, opts.configDirs...)
	if err != nil {
		return nil, err
	}

	loggers := newLoggerProvider(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)

	db, err := repository.OpenPersistence(repository.PersistenceConfig{
		DSN:         cfg.Database.DSN,
		Debug:       cfg.Database.Debug,
		PingTimeout: cfg.Database.PingTimeout,
	})
	if err != nil {
		return nil, err
	}
	repos := repository.NewManager(db.DB())

	provider := memory.New(
		memory.WithSigningKey(cfg.Provider.SigningKey),
		memory.WithIssuer(cfg.Provider.Issuer),
		memory.WithTokenTTL(cfg.Provider.TokenTTL),
		memory.WithRequireConfirmation(cfg.Provider.RequireConfirmation),
		memory.WithBcryptCost(cfg.Provider.BcryptCost),
		memory.WithLogger(loggers.GetLogger("provider.memory")),
	)

	activity := auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		record := activitymap.Normalize(event, activitymap.WithActorFallback("saloon-session"))
		loggers.GetLogger("auth.activity").Info("activity", record.LogArgs()...)
		return nil
	})

	provisioner := auth.NewIdentityProvisioner(repos.TeamMembers(),
		auth.WithProvisionerLoggerProvider(loggers),
		auth.WithProvisionerDefaultRole(cfg.GetDefaultRole()),
		auth.WithProvisionerActivitySink(activity),
	)
	resolver := auth.NewRoleResolver(repos.TeamMembers(),
		auth.WithRoleResolverLoggerProvider(loggers),
	)

	sessions := auth.NewSessionManager(provider, resolver,
		auth.WithSessionConfig(cfg),
		auth.WithSessionProvisioner(provisioner),
		auth.WithSessionLoggerProvider(loggers),
		auth.WithSessionActivitySink(activity),
	)

	registry := tenant.NewRegistry(repos.Shops(),
		tenant.WithLoggerProvider(loggers),
		tenant.WithEventBuffer(cfg.GetEventBuffer()),
	)

	a := &app{
		cfg:      cfg,
		loggers:  loggers,
		logger:   loggers.GetLogger("saloon-session"),
		db:       db,
		repos:    repos,
		provider: provider,
		sessions: sessions,
		registry: registry,
	}
	a.closer = func() error {
		registry.Close()
		sessions.Close()
		return db.Close()
	}

	return a, nil
}

func (a *app) start(ctx context.Context) error {
	if err := a.db.Migrate(ctx); err != nil {
		return err
	}
	if err := a.registry.Start(a.provider); err != nil {
		return err
	}
	return a.sessions.Start(ctx)
}

func (a *app) Close() error {
	return a.closer()
}
