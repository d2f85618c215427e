// Package indexer turns batches of media posts into stored MovieRecords:
// extract the caption, build the record, save, count. It backs both the
// one-shot auto-index of new channel posts and bulk re-index runs.
package indexer

import (
	"context"

	"go.uber.org/zap"

	"moviedex-tg-bot/internal/extract"
	"moviedex-tg-bot/internal/storage"
)

// Item is one inbound media post.
type Item struct {
	MediaID string // Telegram file_unique_id; empty disables dedup for this item
	Caption string
	Link    string // permalink to the original message
}

// Report tallies one indexing run. Duplicates are not failures: they mean
// the record was already indexed.
type Report struct {
	Indexed    int
	Duplicates int
	Failed     int
	Skipped    int
}

func (r Report) Processed() int { return r.Indexed + r.Duplicates + r.Failed + r.Skipped }

// Saver is the store side the indexer needs. *storage.Mongo satisfies it.
type Saver interface {
	SaveMovie(ctx context.Context, rec storage.MovieRecord) error
}

// BatchSize is how many items are processed between progress callbacks.
const BatchSize = 50

type Indexer struct {
	store Saver
	log   *zap.Logger
}

func New(store Saver, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{store: store, log: log}
}

// Record builds the MovieRecord for one item without saving it.
func Record(scope int64, it Item) storage.MovieRecord {
	d := extract.Extract(it.Caption)
	return storage.MovieRecord{
		ScopeID:       scope,
		UniqueMediaID: it.MediaID,
		Title:         d.Title,
		Year:          d.Year,
		Quality:       d.Quality,
		Languages:     d.Languages,
		SourceTag:     d.SourceTag,
		Season:        d.Season,
		Episode:       d.Episode,
		Codec:         d.Codec,
		Caption:       it.Caption,
		Link:          it.Link,
	}
}

// Index processes items in order, reporting progress every BatchSize items.
// A cancelled context stops the run and returns the partial report with
// ctx.Err(); everything saved so far stays saved.
func (ix *Indexer) Index(ctx context.Context, scope int64, items []Item, progress func(Report)) (Report, error) {
	var rep Report
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if it.Caption == "" {
			rep.Skipped++
			continue
		}
		switch err := ix.store.SaveMovie(ctx, Record(scope, it)); {
		case err == nil:
			rep.Indexed++
		case err == storage.ErrDuplicate:
			rep.Duplicates++
		default:
			rep.Failed++
			ix.log.Warn("save failed during indexing",
				zap.Int64("scope", scope), zap.String("media_id", it.MediaID), zap.Error(err))
		}
		if progress != nil && rep.Processed()%BatchSize == 0 {
			progress(rep)
		}
	}
	return rep, nil
}
