package clustering

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
)

const (
	sampleSongCount = 3

	// dominantShare is the centroid probability a genre needs to name a group.
	dominantShare = 0.25
	maxDominant   = 2
)

// DominantGenres returns up to two genres whose share of the centroid is at
// least a quarter, strongest first. Ties keep registry order.
func DominantGenres(centroid model.Probabilities) []genre.Genre {
	var out []genre.Genre
	for _, g := range genre.All {
		if centroid[g] >= dominantShare {
			out = append(out, g)
		}
	}
	slices.SortStableFunc(out, func(a, b genre.Genre) int {
		return cmp.Compare(centroid[b], centroid[a])
	})
	if len(out) > maxDominant {
		out = out[:maxDominant]
	}
	return out
}

// GroupName names a group after its dominant genres.
func GroupName(dominant []genre.Genre) string {
	switch len(dominant) {
	case 0:
		return "Mixed"
	case 1:
		return "Mostly " + dominant[0].DisplayName()
	default:
		return dominant[0].DisplayName() + " & " + dominant[1].DisplayName()
	}
}

// FormatSummary returns a human-readable summary of detected groups.
// Shows the song count and the first 3 titles of each group.
// Outliers are summarized by count only.
func FormatSummary(groups []Group, outliers []model.Song) string {
	var sb strings.Builder

	total := len(outliers)
	for _, g := range groups {
		total += len(g.Songs)
	}

	if len(groups) == 0 {
		fmt.Fprintf(&sb, "No genre groups found from %d %s", total, plural(total, "song"))
		if len(outliers) > 0 {
			fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Found %d %s from %d %s", len(groups), plural(len(groups), "group"), total, plural(total, "song"))
	if len(outliers) > 0 {
		fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
	}
	sb.WriteString("\n")

	for i, g := range groups {
		sb.WriteString("\n")
		sb.WriteString(formatGroup(i+1, g))
	}
	return sb.String()
}

func formatGroup(num int, g Group) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Group %d: %s (%d %s)\n", num, g.Name, len(g.Songs), plural(len(g.Songs), "song"))

	for _, song := range g.Songs[:min(sampleSongCount, len(g.Songs))] {
		fmt.Fprintf(&sb, "  • %q - %s\n", song.Title, song.PredictedGenre.DisplayName())
	}
	if remaining := len(g.Songs) - sampleSongCount; remaining > 0 {
		fmt.Fprintf(&sb, "  ... and %d more\n", remaining)
	}
	return sb.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
