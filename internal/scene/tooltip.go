package scene

import (
	"fmt"

	"github.com/justestif/go-genre-decagon/internal/genre"
)

const tooltipTitleRunes = 20

// TooltipTitle shortens a title to its first 20 characters plus an ellipsis.
func TooltipTitle(title string) string {
	r := []rune(title)
	if len(r) <= tooltipTitleRunes {
		return title
	}
	return string(r[:tooltipTitleRunes]) + "..."
}

// TooltipDetail formats the genre line, e.g. "rock (80%)".
func TooltipDetail(g genre.Genre, confidence float64) string {
	return fmt.Sprintf("%s (%.0f%%)", g, confidence*100)
}
