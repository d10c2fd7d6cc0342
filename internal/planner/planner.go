// Package planner computes the canonical destination path for a resolved
// media identity. It performs no I/O and is deterministic on its inputs.
package planner

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ProcessedData is the canonical record returned by the metadata provider
// (Resolver Stage B); field presence distinguishes movie from TV records,
// matching the original's media_info dict shape.
type ProcessedData struct {
	// Movie fields
	Title       string
	ReleaseDate string // "YYYY-MM-DD" or empty

	// TV fields
	Name         string // presence of Name (vs Title) selects the TV branch
	FirstAirDate string
}

// Guess is the season/episode subset of Resolver Stage A's output the
// planner needs; season defaults to 1 when zero.
type Guess struct {
	Season  int
	Episode *int
}

// IsTV reports whether data describes a TV record rather than a movie.
func (d ProcessedData) IsTV() bool {
	return d.Name != ""
}

// sanitizeTitle keeps only [A-Za-z0-9 _-], matching the original's
// sanitize_title character filter exactly.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// yearFromDate extracts the four-digit year prefix of a "YYYY-MM-DD" date
// string, or "" if date is empty or too short.
func yearFromDate(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// GeneratePath computes TARGET/Movies/<clean_title> (YYYY)?<ext> for movies
// or TARGET/TV Shows/<clean_title> (YYYY)?/<clean_title> SssEee<ext> for TV,
// matching generate_new_path's exact construction rules.
func GeneratePath(data ProcessedData, guess Guess, originalFilepath, targetDir string) string {
	ext := filepath.Ext(originalFilepath)

	if data.IsTV() {
		cleanTitle := sanitizeTitle(data.Name)
		year := yearFromDate(data.FirstAirDate)

		folderName := cleanTitle
		if year != "" {
			folderName = fmt.Sprintf("%s (%s)", cleanTitle, year)
		}

		season := guess.Season
		if season == 0 {
			season = 1
		}

		var filename string
		if guess.Episode != nil {
			filename = fmt.Sprintf("%s S%02dE%02d%s", cleanTitle, season, *guess.Episode, ext)
		} else {
			// No episode info: fall back to the folder name to avoid
			// overwriting sibling files with the same generic name.
			filename = folderName + ext
		}

		return filepath.Join(targetDir, "TV Shows", folderName, filename)
	}

	title := data.Title
	if title == "" {
		title = "Unknown"
	}
	cleanTitle := sanitizeTitle(title)
	year := yearFromDate(data.ReleaseDate)

	var filename string
	if year != "" {
		filename = fmt.Sprintf("%s (%s)%s", cleanTitle, year, ext)
	} else {
		filename = cleanTitle + ext
	}

	return filepath.Join(targetDir, "Movies", filename)
}
