package search

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"moviedex-tg-bot/internal/extract"
	"moviedex-tg-bot/internal/storage"
)

func rec(id byte, mutate func(*storage.MovieRecord)) storage.MovieRecord {
	var oid primitive.ObjectID
	oid[11] = id
	r := storage.MovieRecord{ID: oid}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func titlesOf(records []storage.MovieRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

func TestRankExactTitleFirst(t *testing.T) {
	records := []storage.MovieRecord{
		rec(1, func(r *storage.MovieRecord) { r.Title = "Mirage Returns"; r.Score = 99 }),
		rec(2, func(r *storage.MovieRecord) { r.Title = "Mirage"; r.Score = 1 }),
	}
	Rank("mirage", records)
	if records[0].Title != "Mirage" {
		t.Errorf("order = %v, want exact match first", titlesOf(records))
	}
}

func TestRankPrefixBeatsWordHits(t *testing.T) {
	records := []storage.MovieRecord{
		rec(1, func(r *storage.MovieRecord) { r.Title = "Return of the Dark Knight" }),
		rec(2, func(r *storage.MovieRecord) { r.Title = "Dark Knight Rises" }),
	}
	Rank("dark knight", records)
	if records[0].Title != "Dark Knight Rises" {
		t.Errorf("order = %v, want prefix match first", titlesOf(records))
	}
}

func TestRankWordHits(t *testing.T) {
	records := []storage.MovieRecord{
		rec(1, func(r *storage.MovieRecord) { r.Title = "Only knight here" }),
		rec(2, func(r *storage.MovieRecord) { r.Title = "The knight in dark armor" }),
	}
	Rank("dark knight movie", records)
	if records[0].Title != "The knight in dark armor" {
		t.Errorf("order = %v, want more query words first", titlesOf(records))
	}
}

func TestRankTextScore(t *testing.T) {
	records := []storage.MovieRecord{
		rec(1, func(r *storage.MovieRecord) { r.Title = "Alpha one"; r.Score = 1.5 }),
		rec(2, func(r *storage.MovieRecord) { r.Title = "Alpha two"; r.Score = 3.0 }),
	}
	Rank("alpha", records)
	if records[0].Score != 3.0 {
		t.Errorf("order = %v, want higher text score first", titlesOf(records))
	}
}

func TestRankSeriesOrder(t *testing.T) {
	records := []storage.MovieRecord{
		rec(1, func(r *storage.MovieRecord) {
			r.Title = "Dark"; r.Season = 2; r.Episode = extract.SingleEpisode(1)
		}),
		rec(2, func(r *storage.MovieRecord) {
			r.Title = "Dark"; r.Season = 1; r.Episode = extract.SingleEpisode(5)
		}),
		rec(3, func(r *storage.MovieRecord) {
			r.Title = "Dark"; r.Season = 1; r.Episode = extract.SingleEpisode(2)
		}),
	}
	Rank("dark", records)
	got := []int{records[0].Episode.Start, records[1].Episode.Start, records[2].Episode.Start}
	if records[0].Season != 1 || got[0] != 2 || got[1] != 5 || records[2].Season != 2 {
		t.Errorf("series order wrong: %+v", records)
	}
}

func TestRankYearDescending(t *testing.T) {
	records := []storage.MovieRecord{
		rec(1, func(r *storage.MovieRecord) { r.Title = "Dune"; r.Year = 1984 }),
		rec(2, func(r *storage.MovieRecord) { r.Title = "Dune"; r.Year = 2021 }),
	}
	Rank("dune", records)
	if records[0].Year != 2021 {
		t.Errorf("order = %v, want newer year first", []int{records[0].Year, records[1].Year})
	}
}

func TestRankStableIDTiebreak(t *testing.T) {
	records := []storage.MovieRecord{
		rec(2, func(r *storage.MovieRecord) { r.Title = "Same"; r.Year = 2020 }),
		rec(1, func(r *storage.MovieRecord) { r.Title = "Same"; r.Year = 2020 }),
	}
	Rank("same", records)
	if records[0].ID.Hex() > records[1].ID.Hex() {
		t.Errorf("id tiebreak not applied: %v, %v", records[0].ID.Hex(), records[1].ID.Hex())
	}
}
