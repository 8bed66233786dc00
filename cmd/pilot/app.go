package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldpilot/internal/chain"
	"yieldpilot/internal/config"
	"yieldpilot/internal/events"
	"yieldpilot/internal/httpjson"
	"yieldpilot/internal/metrics"
	"yieldpilot/internal/quote"
	"yieldpilot/internal/signer"
	"yieldpilot/internal/storage"
	"yieldpilot/internal/storage/postgres"
	"yieldpilot/internal/venue"
	"yieldpilot/internal/workflow"
	"yieldpilot/internal/yield"
)

// app holds everything one process needs to run intents.
type app struct {
	svc     *workflow.Service
	metrics *metrics.Registry
	history storage.History
	owner   common.Address
	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	if cfg.Owner != "" {
		owner, err := chain.ParseAddress(cfg.Owner)
		if err != nil {
			return nil, fmt.Errorf("owner: %w", err)
		}
		a.owner = owner
	}

	tables, err := config.LoadVenues(cfg.VenuesFile)
	if err != nil {
		return nil, err
	}
	registry := venue.DefaultRegistry(tables)

	if len(cfg.RPC) == 0 {
		return nil, fmt.Errorf("at least one rpc endpoint is required")
	}
	clients, err := chain.Dial(ctx, cfg.RPC, logger)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	for _, client := range clients {
		a.closers = append(a.closers, client.Close)
	}
	reader := chain.NewReader(chain.Backends(clients), chain.ReaderConfig{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Timeout:      cfg.HTTPTimeout,
	}, logger)

	httpCfg := func(baseURL string) httpjson.Config {
		return httpjson.Config{
			BaseURL:      baseURL,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}
	}
	quotes := quote.NewAggregator([]quote.Source{
		quote.NewLiFi(httpCfg(cfg.LiFiURL)),
		quote.NewDeBridge(httpCfg(cfg.DeBridgeURL)),
	}, cfg.QuoteTimeout, logger).WithRecorder(a.metrics)
	scanner := yield.NewScanner(yield.NewLlama(httpCfg(cfg.LlamaURL), cfg.MinTVLUSD), len(cfg.Chains), logger)

	var sign signer.Signer = signer.Unconfigured{}
	if cfg.SignerURL != "" {
		sign = signer.NewRemote(cfg.SignerURL, cfg.SignerToken, cfg.SignerTimeout)
	}

	var journal workflow.Journal
	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		journal, a.history = store, store
	case cfg.Journal != "":
		jsonl := storage.NewJsonlJournal(cfg.Journal)
		journal, a.history = jsonl, jsonl
	}

	var publisher workflow.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("nats drain failed", zap.Error(err))
			}
		})
		publisher = pub
	}

	a.svc = workflow.New(workflow.Deps{
		Registry:    registry,
		Assets:      chain.NewResolver(reader),
		Reader:      reader,
		Quotes:      quotes,
		Yields:      scanner,
		Signer:      sign,
		Journal:     journal,
		Publisher:   publisher,
		Metrics:     a.metrics,
		Logger:      logger,
		Chains:      cfg.Chains,
		SlippageBps: cfg.SlippageBps,
	})

	logger.Info("pilot ready",
		zap.Int("chains", len(clients)),
		zap.Strings("protocols", registry.Protocols()),
		zap.Bool("signer", cfg.SignerURL != ""),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("nats", cfg.NATSURL != ""),
	)
	ok = true
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
