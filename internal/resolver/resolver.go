package resolver

import "context"

// FilenameParser is Stage A: turn a bare filename into a structured guess.
// Implemented by internal/resolver/llm.Client.
type FilenameParser interface {
	Analyze(ctx context.Context, filename string) (Guess, error)
}

// MetadataMatcher is Stage B: turn a guess into a provider record. A nil
// Match with a nil error means the search returned empty (NO_MATCH).
// Implemented by internal/resolver/tmdb.Client.
type MetadataMatcher interface {
	Match(ctx context.Context, guess Guess) (*Match, error)
}

// Resolver composes both stages behind the two independent interfaces a
// Worker calls per §4.7: Stage A only when ENABLE_LLM, Stage B only when
// ENABLE_TMDB and a guess was produced. Either dependency may be nil if the
// corresponding stage is disabled for the process's lifetime.
type Resolver struct {
	LLM  FilenameParser
	TMDB MetadataMatcher
}

// New builds a Resolver from its two stage implementations. Either may be
// nil if the corresponding stage is disabled.
func New(llm FilenameParser, tmdb MetadataMatcher) *Resolver {
	return &Resolver{LLM: llm, TMDB: tmdb}
}
