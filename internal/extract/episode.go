package extract

import "fmt"

// EpisodeKind tags the shape of an episode marker found in a caption.
type EpisodeKind string

const (
	EpisodeNone     EpisodeKind = ""
	EpisodeSingle   EpisodeKind = "single"
	EpisodeRange    EpisodeKind = "range"
	EpisodeComplete EpisodeKind = "complete"
)

// Episode is a tagged variant: absent, a single episode number, an
// inclusive range, or a whole-season "Complete" pack. Start and End are
// only meaningful for the single and range kinds.
type Episode struct {
	Kind  EpisodeKind `bson:"kind,omitempty" json:"kind,omitempty"`
	Start int         `bson:"start,omitempty" json:"start,omitempty"`
	End   int         `bson:"end,omitempty" json:"end,omitempty"`
}

func SingleEpisode(n int) Episode { return Episode{Kind: EpisodeSingle, Start: n, End: n} }

func EpisodeSpan(from, to int) Episode { return Episode{Kind: EpisodeRange, Start: from, End: to} }

func (e Episode) IsZero() bool { return e.Kind == EpisodeNone }

// String renders the marker for display ("E05", "E03-E10", "Complete").
func (e Episode) String() string {
	switch e.Kind {
	case EpisodeSingle:
		return fmt.Sprintf("E%02d", e.Start)
	case EpisodeRange:
		return fmt.Sprintf("E%02d-E%02d", e.Start, e.End)
	case EpisodeComplete:
		return "Complete"
	}
	return ""
}
