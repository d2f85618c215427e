// Package api routes Telegram updates into the extractor, the indexer and
// the search pipeline, and renders result pages back into messages.
package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"moviedex-tg-bot/internal/cache"
	"moviedex-tg-bot/internal/config"
	"moviedex-tg-bot/internal/indexer"
	"moviedex-tg-bot/internal/search"
	"moviedex-tg-bot/internal/storage"
	"moviedex-tg-bot/internal/tg"
)

type Bot struct {
	tg       *tg.Client
	store    *storage.Mongo
	pipeline *search.Pipeline
	indexer  *indexer.Indexer
	log      *zap.Logger
	cfg      *config.Config
}

func NewBot(tc *tg.Client, store *storage.Mongo, pipeline *search.Pipeline, ix *indexer.Indexer, log *zap.Logger, cfg *config.Config) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{tg: tc, store: store, pipeline: pipeline, indexer: ix, log: log, cfg: cfg}
}

// NewFromConfig wires the whole bot: Telegram client, Mongo store, Redis or
// in-memory cache, pipeline, indexer. The returned cleanup closes the
// store and cache.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Bot, func(), error) {
	store, err := storage.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}

	var c cache.Cache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// The cache is an optimization; a dead Redis only costs speed.
			log.Warn("redis unavailable, using in-memory cache", zap.Error(err))
			c = cache.NewMemory()
		} else {
			c = rc
		}
	} else {
		c = cache.NewMemory()
	}

	pipeline := search.NewPipeline(store, c, log, search.Options{
		PageSize:       cfg.Search.PageSize,
		MaxResults:     cfg.Search.MaxResults,
		MinQueryLength: cfg.Search.MinQueryLength,
		TTL:            time.Duration(cfg.Search.CacheTTLSeconds) * time.Second,
	})
	ix := indexer.New(store, log)
	bot := NewBot(tg.NewClient(cfg.BotToken), store, pipeline, ix, log, cfg)

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
		_ = c.Close()
	}
	return bot, cleanup, nil
}
