package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/chatlens/chatlens/pkg/analysis"
	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/apis/cache"
	"github.com/chatlens/chatlens/pkg/assistant"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/flags"
	"github.com/chatlens/chatlens/pkg/pipeline"
	"github.com/chatlens/chatlens/pkg/settings"
)

// AppFlags are shared by every command that runs the analysis components.
type AppFlags struct {
	DBFlags       *flags.PostgresFlags
	CacheFlags    *flags.CacheFlags
	AIFlags       *flags.AIFlags
	AnalysisFlags *flags.AnalysisFlags
}

func NewAppFlags() *AppFlags {
	return &AppFlags{
		DBFlags:       flags.NewPostgresDatabaseFlags(),
		CacheFlags:    flags.NewCacheFlags(),
		AIFlags:       flags.NewAIFlags(),
		AnalysisFlags: flags.NewAnalysisFlags(),
	}
}

func (f *AppFlags) BindFlags(fs *pflag.FlagSet) {
	f.DBFlags.BindFlags(fs)
	f.CacheFlags.BindFlags(fs)
	f.AIFlags.BindFlags(fs)
	f.AnalysisFlags.BindFlags(fs)
}

func (f *AppFlags) Validate() error {
	if err := f.CacheFlags.Validate(); err != nil {
		return err
	}
	if err := f.AIFlags.Validate(); err != nil {
		return err
	}
	return f.AnalysisFlags.Validate()
}

// app holds the components built from AppFlags.
type app struct {
	dbc       *db.DB
	cache     cache.Cache
	ai        flags.AIClients
	lexicon   *analysis.Lexicon
	settings  *settings.DBSource
	reports   *api.Reports
	pipeline  *pipeline.Pipeline
	assistant *assistant.Assistant
}

func (f *AppFlags) newApp(ctx context.Context) (*app, error) {
	if err := f.Validate(); err != nil {
		return nil, errors.WithMessage(err, "error validating options")
	}

	dbc, err := f.DBFlags.GetDBClient()
	if err != nil {
		return nil, errors.WithMessage(err, "couldn't get DB client")
	}

	cacheClient, err := f.CacheFlags.GetCacheClient(dbc)
	if err != nil {
		return nil, errors.WithMessage(err, "couldn't get cache client")
	}

	lexicon, err := f.AnalysisFlags.GetLexicon(ctx, dbc)
	if err != nil {
		return nil, err
	}

	a := &app{
		dbc:      dbc,
		cache:    cacheClient,
		ai:       f.AIFlags.GetAIClients(),
		lexicon:  lexicon,
		settings: settings.NewDBSource(dbc),
	}
	a.reports = api.NewReports(api.NewDBStore(dbc), cacheClient, lexicon, a.ai.Embedder)
	a.pipeline = pipeline.New(pipeline.NewDBStore(dbc), lexicon, a.ai.Embedder, a.ai.Generator, a.settings)
	a.assistant = assistant.New(a.ai.Generator, a.ai.ChatProbe, assistant.NewDBSource(dbc))
	return a, nil
}
