package search

import (
	"sort"
	"strings"

	"moviedex-tg-bot/internal/extract"
	"moviedex-tg-bot/internal/storage"
)

// rankKey precomputes the ordered ranking criteria for one record. Records
// compare criterion by criterion; the next one only matters on a tie.
type rankKey struct {
	exactTitle  bool
	titlePrefix bool
	wordHits    int
	textScore   float64
	season      int
	episode     int
	year        int
	titleFold   string
	id          string
}

const unranked = int(^uint(0) >> 1)

func makeRankKey(queryFold string, terms []string, rec storage.MovieRecord) rankKey {
	titleFold := strings.ToLower(strings.TrimSpace(rec.Title))
	k := rankKey{
		exactTitle:  titleFold != "" && titleFold == queryFold,
		titlePrefix: titleFold != "" && strings.HasPrefix(titleFold, queryFold),
		textScore:   rec.Score,
		season:      unranked,
		episode:     unranked,
		year:        rec.Year,
		titleFold:   titleFold,
		id:          rec.ID.Hex(),
	}
	for _, t := range terms {
		if strings.Contains(titleFold, t) {
			k.wordHits++
		}
	}
	if rec.Season > 0 {
		k.season = rec.Season
	}
	if rec.Episode.Kind == extract.EpisodeSingle || rec.Episode.Kind == extract.EpisodeRange {
		k.episode = rec.Episode.Start
	}
	return k
}

// Rank orders records in place: exact title match, then title-prefix match,
// then distinct query words found in the title, then store text score, then
// series order (season and episode ascending, unnumbered records last),
// then release year descending, then title, then record id. The sort is
// stable so equal records keep their store order.
func Rank(query string, records []storage.MovieRecord) {
	queryFold := strings.ToLower(strings.Join(strings.Fields(query), " "))
	terms := dedupeTerms(strings.Fields(queryFold))

	// Keys and records move together: sorting pairs keeps the precomputed
	// key attached to its record through every swap.
	ranked := make([]rankedRecord, len(records))
	for i, rec := range records {
		ranked[i] = rankedRecord{key: makeRankKey(queryFold, terms, rec), rec: rec}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].key, ranked[j].key
		if a.exactTitle != b.exactTitle {
			return a.exactTitle
		}
		if a.titlePrefix != b.titlePrefix {
			return a.titlePrefix
		}
		if a.wordHits != b.wordHits {
			return a.wordHits > b.wordHits
		}
		if a.textScore != b.textScore {
			return a.textScore > b.textScore
		}
		if a.season != b.season {
			return a.season < b.season
		}
		if a.episode != b.episode {
			return a.episode < b.episode
		}
		if a.year != b.year {
			return a.year > b.year
		}
		if a.titleFold != b.titleFold {
			return a.titleFold < b.titleFold
		}
		return a.id < b.id
	})
	for i := range ranked {
		records[i] = ranked[i].rec
	}
}

type rankedRecord struct {
	key rankKey
	rec storage.MovieRecord
}

func dedupeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
