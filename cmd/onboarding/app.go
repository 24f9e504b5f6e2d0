package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rockethooks/onboarding/config"
	"github.com/rockethooks/onboarding/draft"
	"github.com/rockethooks/onboarding/kv"
	"github.com/rockethooks/onboarding/logger"
	"github.com/rockethooks/onboarding/onboarding"
	"github.com/rockethooks/onboarding/onboarding/persist"
	"github.com/rockethooks/onboarding/orgclient"
	"github.com/rockethooks/onboarding/shutdown"
	"github.com/rockethooks/onboarding/telemetry"
)

const memoryDatabase = ":memory:"

// application is everything one command invocation needs.
type application struct {
	cfg      *config.Config
	logger   *slog.Logger
	flow     *onboarding.Flow
	store    kv.Store
	drafts   *draft.Store
	adapter  *persist.Adapter
	machine  *onboarding.Machine
	restored bool
	closer   *shutdown.Handler
}

func openApplication(ctx context.Context, opts *rootOptions, logOutput io.Writer) (*application, error) {
	cfg, err := config.Load(config.WithEnvFile(opts.envFile))
	if err != nil {
		return nil, err
	}

	applyFlags(cfg, opts)

	log := logger.ConfigureFromConfig(cfg, "onboarding", logOutput)
	app := &application{cfg: cfg, logger: log, closer: shutdown.New(log)}

	err = telemetry.Initialize(ctx, telemetry.ConfigFrom(cfg, version))
	if err != nil {
		return nil, err
	}

	app.closer.BeforeShutdown("telemetry", telemetry.Shutdown)

	app.flow = onboarding.DefaultFlow()
	if cfg.FlowPath != "" {
		app.flow, err = onboarding.LoadFlow(cfg.FlowPath)
		if err != nil {
			return nil, app.abort(ctx, err)
		}
	}

	app.store, err = openStore(cfg.Database)
	if err != nil {
		return nil, app.abort(ctx, err)
	}

	app.closer.BeforeShutdown("store", func(context.Context) error { return app.store.Close() })

	app.drafts = draft.NewStore(app.store, draft.WithLogger(log))
	app.adapter = persist.NewAdapter(app.store, persist.WithLogger(log))

	var snapshot onboarding.Snapshot

	snapshot, app.restored = app.adapter.Load(ctx)

	app.machine, err = onboarding.NewMachine(
		onboarding.WithFlow(app.flow),
		onboarding.WithDraftStore(app.drafts),
		onboarding.WithPersister(app.adapter),
		onboarding.WithSnapshot(snapshot),
		onboarding.WithUserID(cfg.UserID),
		onboarding.WithLogger(log),
	)
	if err != nil {
		return nil, app.abort(ctx, err)
	}

	return app, nil
}

func applyFlags(cfg *config.Config, opts *rootOptions) {
	if opts.db != "" {
		cfg.Database = opts.db
	}

	if opts.flow != "" {
		cfg.FlowPath = opts.flow
	}

	if opts.user != "" {
		cfg.UserID = opts.user
	}
}

func openStore(path string) (kv.Store, error) {
	if path == memoryDatabase {
		return kv.NewMemory(), nil
	}

	store, err := kv.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return store, nil
}

// creator picks the GraphQL client when an endpoint is configured and a
// local stand-in otherwise.
func (a *application) creator() (onboarding.OrganizationCreator, error) {
	if a.cfg.GraphQLURL == "" {
		a.logger.Info("GRAPHQL_URL not set, organizations get local ids")

		return onboarding.OrganizationCreatorFunc(localOrganization), nil
	}

	return orgclient.New(a.cfg.GraphQLURL,
		orgclient.WithToken(a.cfg.GraphQLToken),
		orgclient.WithMaxTries(a.cfg.GraphQLMaxTries),
		orgclient.WithLogger(a.logger),
	)
}

func localOrganization(_ context.Context, name string) (onboarding.Organization, error) {
	return onboarding.Organization{ID: "local-" + uuid.NewString(), Name: name}, nil
}

func (a *application) Close(ctx context.Context) error {
	return a.closer.Run(ctx)
}

// abort releases what was opened so far and returns err.
func (a *application) abort(ctx context.Context, err error) error {
	_ = a.closer.Run(ctx)

	return err
}
