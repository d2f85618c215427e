package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"moviedex-tg-bot/internal/storage"
)

type fakeSaver struct {
	seen  map[string]bool
	saved []storage.MovieRecord
	err   error
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{seen: map[string]bool{}}
}

func (f *fakeSaver) SaveMovie(_ context.Context, rec storage.MovieRecord) error {
	if f.err != nil {
		return f.err
	}
	key := fmt.Sprintf("%d/%s", rec.ScopeID, rec.UniqueMediaID)
	if rec.UniqueMediaID != "" && f.seen[key] {
		return storage.ErrDuplicate
	}
	f.seen[key] = true
	f.saved = append(f.saved, rec)
	return nil
}

func TestRecordFieldMapping(t *testing.T) {
	it := Item{
		MediaID: "file-123",
		Caption: "Mirage (2025) WebRip [Hindi] 480p x264",
		Link:    "https://t.me/c/100/5",
	}
	rec := Record(42, it)

	if rec.ScopeID != 42 {
		t.Errorf("ScopeID = %d, want 42", rec.ScopeID)
	}
	if rec.UniqueMediaID != "file-123" {
		t.Errorf("UniqueMediaID = %q", rec.UniqueMediaID)
	}
	if rec.Title != "Mirage" || rec.Year != 2025 || rec.Quality != "480p" {
		t.Errorf("extracted fields wrong: %+v", rec)
	}
	if rec.SourceTag != "WEBRip" || rec.Codec != "x264" {
		t.Errorf("tags wrong: %+v", rec)
	}
	if rec.Caption != it.Caption || rec.Link != it.Link {
		t.Errorf("caption/link not carried over: %+v", rec)
	}
}

func TestIndexCounts(t *testing.T) {
	saver := newFakeSaver()
	ix := New(saver, nil)

	items := []Item{
		{MediaID: "a", Caption: "Mirage (2025) 480p"},
		{MediaID: "a", Caption: "Mirage (2025) 480p"}, // same file again
		{MediaID: "b", Caption: ""},                   // media without caption
		{MediaID: "c", Caption: "Dune (2021) 2160p"},
	}
	rep, err := ix.Index(context.Background(), 1, items, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	want := Report{Indexed: 2, Duplicates: 1, Skipped: 1}
	if rep != want {
		t.Errorf("report = %+v, want %+v", rep, want)
	}
	if rep.Processed() != len(items) {
		t.Errorf("Processed() = %d, want %d", rep.Processed(), len(items))
	}
	if len(saver.saved) != 2 {
		t.Errorf("saved %d records, want 2", len(saver.saved))
	}
}

func TestIndexCountsFailures(t *testing.T) {
	saver := newFakeSaver()
	saver.err = errors.New("write concern error")
	ix := New(saver, nil)

	rep, err := ix.Index(context.Background(), 1, []Item{
		{MediaID: "a", Caption: "Mirage 480p"},
		{MediaID: "b", Caption: "Dune 2160p"},
	}, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if rep.Failed != 2 || rep.Indexed != 0 {
		t.Errorf("report = %+v, want 2 failures", rep)
	}
}

func TestIndexCancelReturnsPartialReport(t *testing.T) {
	saver := newFakeSaver()

	ctx, cancel := context.WithCancel(context.Background())
	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{MediaID: fmt.Sprintf("m%d", i), Caption: fmt.Sprintf("Movie %d 480p", i)}
	}

	done := 0
	wrapped := &cancelAfter{inner: saver, n: 4, cancel: cancel, count: &done}
	rep, err := New(wrapped, nil).Index(ctx, 1, items, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Index err = %v, want context.Canceled", err)
	}
	if rep.Indexed != 4 {
		t.Errorf("partial report Indexed = %d, want 4", rep.Indexed)
	}
	if len(saver.saved) != 4 {
		t.Errorf("saved %d records before cancel, want 4", len(saver.saved))
	}
}

type cancelAfter struct {
	inner  Saver
	n      int
	cancel context.CancelFunc
	count  *int
}

func (c *cancelAfter) SaveMovie(ctx context.Context, rec storage.MovieRecord) error {
	err := c.inner.SaveMovie(ctx, rec)
	*c.count++
	if *c.count == c.n {
		c.cancel()
	}
	return err
}

func TestIndexProgressCadence(t *testing.T) {
	saver := newFakeSaver()
	ix := New(saver, nil)

	items := make([]Item, 2*BatchSize+5)
	for i := range items {
		items[i] = Item{MediaID: fmt.Sprintf("m%d", i), Caption: fmt.Sprintf("Movie %d 480p", i)}
	}

	var calls []int
	rep, err := ix.Index(context.Background(), 1, items, func(r Report) {
		calls = append(calls, r.Processed())
	})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if rep.Indexed != len(items) {
		t.Errorf("Indexed = %d, want %d", rep.Indexed, len(items))
	}
	if len(calls) != 2 || calls[0] != BatchSize || calls[1] != 2*BatchSize {
		t.Errorf("progress calls at %v, want [%d %d]", calls, BatchSize, 2*BatchSize)
	}
}
