package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePathMovie(t *testing.T) {
	data := ProcessedData{Title: "The Matrix", ReleaseDate: "1999-03-31"}
	got := GeneratePath(data, Guess{}, "/src/the.matrix.1999.1080p.mkv", "/target")
	assert.Equal(t, "/target/Movies/The Matrix (1999).mkv", got)
}

func TestGeneratePathMovieNoYear(t *testing.T) {
	data := ProcessedData{Title: "Unreleased Film"}
	got := GeneratePath(data, Guess{}, "/src/film.mp4", "/target")
	assert.Equal(t, "/target/Movies/Unreleased Film.mp4", got)
}

func TestGeneratePathTVWithEpisode(t *testing.T) {
	ep := 5
	data := ProcessedData{Name: "Breaking Bad", FirstAirDate: "2008-01-20"}
	got := GeneratePath(data, Guess{Season: 2, Episode: &ep}, "/src/bb.s02e05.mkv", "/target")
	assert.Equal(t, "/target/TV Shows/Breaking Bad (2008)/Breaking Bad S02E05.mkv", got)
}

func TestGeneratePathTVDefaultSeason(t *testing.T) {
	ep := 1
	data := ProcessedData{Name: "Show", FirstAirDate: "2020-01-01"}
	got := GeneratePath(data, Guess{Episode: &ep}, "/src/show.mkv", "/target")
	assert.Equal(t, "/target/TV Shows/Show (2020)/Show S01E01.mkv", got)
}

func TestGeneratePathTVNoEpisodeFallsBackToFolderName(t *testing.T) {
	data := ProcessedData{Name: "Anthology", FirstAirDate: "2021-06-01"}
	got := GeneratePath(data, Guess{}, "/src/anthology.mkv", "/target")
	assert.Equal(t, "/target/TV Shows/Anthology (2021)/Anthology (2021).mkv", got)
}

func TestSanitizeTitleStripsSpecialCharacters(t *testing.T) {
	assert.Equal(t, "Title Foo  Bar", sanitizeTitle("Title: Foo & Bar!"))
	assert.Equal(t, "Snake_Case-Ok", sanitizeTitle("Snake_Case-Ok"))
}
