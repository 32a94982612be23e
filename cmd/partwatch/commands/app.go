package commands

import (
	"errors"

	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/metrics"
	"partwatch/internal/pipeline"
	"partwatch/internal/store"
	"partwatch/internal/views"
	"partwatch/pkg/serviceutil"
)

// app is everything a command may need, wired from the config.
type app struct {
	cfg      Config
	store    *store.Store
	cache    *views.Cache
	views    views.Service
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	time     chrono.API
	tel      telemetry.API
}

func openApp() (*app, error) {
	cfg, err := readConfig(configPath)
	if err != nil {
		return nil, err
	}

	tel := telemetry.SlogAPI{}
	clock := chrono.NewStandardImpl()

	st, err := store.Open(cfg.Store, tel)
	if err != nil {
		return nil, err
	}
	cache, err := views.NewCache()
	if err != nil {
		st.Close()
		return nil, err
	}

	service := views.NewService(st, cache, tel)
	m := metrics.New()
	p := pipeline.New(pipeline.Options{
		BaseUrl:     cfg.BaseUrl,
		Categories:  cfg.Categories,
		Credentials: cfg.Credentials,
	}, st, clock, tel).
		WithInvalidator(service).
		WithMetrics(m)

	return &app{
		cfg:      cfg,
		store:    st,
		cache:    cache,
		views:    service,
		pipeline: p,
		metrics:  m,
		time:     clock,
		tel:      tel,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}

// mustOpenApp is openApp for commands, it exits on failure.
func mustOpenApp() *app {
	a, err := openApp()
	if err != nil {
		serviceutil.Fatal("failed to initialize", err)
	}
	return a
}
