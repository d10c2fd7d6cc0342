// Package resolver implements the two-stage Identity Resolver: Stage A asks
// an LLM to parse a filename into a structured guess, Stage B queries a
// metadata provider for the canonical record the guess most likely names.
package resolver

import "github.com/zhinengfan/clearmedia-go/internal/planner"

// Guess is Stage A's output: an unverified structured parse of a filename.
type Guess struct {
	Title   string
	Type    string // "movie" or "tv"
	Year    *int
	Season  int
	Episode *int
}

// Match is Stage B's output: a provider record deemed to identify the file,
// plus the queried type and provider id persisted alongside it.
type Match struct {
	TMDBID        int64
	MediaType     string // "movie" or "tv", mirrors Guess.Type
	ProcessedData planner.ProcessedData
}

// PlannerGuess narrows a Guess down to the season/episode fields the Path
// Planner needs, defaulting season to 1 when the LLM didn't report one.
func (g Guess) PlannerGuess() planner.Guess {
	season := g.Season
	if season == 0 {
		season = 1
	}
	return planner.Guess{Season: season, Episode: g.Episode}
}
