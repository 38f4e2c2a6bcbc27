// Package panel renders the selected song's details and deletes it on
// request.
package panel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/store"
)

// ErrNoSelection is returned by Delete when no song is selected.
var ErrNoSelection = errors.New("no song selected")

const deleteFailed = "Failed to delete song"

// Deleter removes songs from the backend.
type Deleter interface {
	DeleteSong(ctx context.Context, id int64) error
}

// Bar is one row of the genre breakdown.
type Bar struct {
	Genre       genre.Genre
	Name        string
	Color       string
	Probability float64
	Percent     string // "12.3%"
	Width       float64
	Primary     bool
}

// View is the rendered state of the panel.
type View struct {
	SongID      int64
	Title       string
	SourceLabel string
	SourceURL   string

	Genre      genre.Genre
	GenreName  string
	Color      string
	Confidence string

	Breakdown []Bar

	Position string
	Duration string
	Added    string
}

// Panel shows the store's selection.
type Panel struct {
	store   *store.Store
	backend Deleter
	loop    store.Runner
}

// New creates a panel over s. Mutations run through loop.
func New(s *store.Store, backend Deleter, loop store.Runner) *Panel {
	return &Panel{store: s, backend: backend, loop: loop}
}

// View returns the selected song's details, or nil when nothing is
// selected. Call it inside the loop.
func (p *Panel) View() *View {
	song := p.store.Selected()
	if song == nil {
		return nil
	}
	return NewView(*song)
}

// NewView builds the panel view for song. The predicted genre and
// confidence are shown as given, never derived from the probabilities.
func NewView(song model.Song) *View {
	v := &View{
		SongID:      song.ID,
		Title:       song.Title,
		SourceLabel: song.Source.Label(),
		SourceURL:   song.SourceURL,
		Genre:       song.PredictedGenre,
		GenreName:   song.PredictedGenre.DisplayName(),
		Color:       song.PredictedGenre.Color(),
		Confidence:  percent(song.Confidence),
		Breakdown:   Breakdown(song.Probabilities, song.PredictedGenre),
		Position:    fmt.Sprintf("(%.2f, %.2f)", song.Position.X, song.Position.Y),
		Added:       formatDate(song),
	}
	if song.Duration != nil {
		v.Duration = FormatDuration(*song.Duration)
	}
	return v
}

// Breakdown returns a bar for every genre, highest probability first. Ties
// keep registry order. Missing genres count as zero and nothing is
// normalized, so widths may exceed 100.
func Breakdown(probs model.Probabilities, primary genre.Genre) []Bar {
	bars := make([]Bar, 0, genre.Count)
	for _, g := range genre.All {
		prob := probs[g]
		bars = append(bars, Bar{
			Genre:       g,
			Name:        g.DisplayName(),
			Color:       g.Color(),
			Probability: prob,
			Percent:     percent(prob),
			Width:       prob * 100,
			Primary:     g == primary,
		})
	}
	slices.SortStableFunc(bars, func(a, b Bar) int {
		switch {
		case a.Probability > b.Probability:
			return -1
		case a.Probability < b.Probability:
			return 1
		}
		return 0
	})
	return bars
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		return ""
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func formatDate(song model.Song) string {
	if song.CreatedAt.IsZero() {
		return ""
	}
	return song.CreatedAt.Format("Jan 2, 2006 3:04 PM")
}

// Delete asks the backend to delete the selected song. Only on success is
// the song removed from the store and the selection cleared. On failure
// the store's error slot is set and the collection is left unchanged.
//
// Delete performs I/O and must be called outside the loop.
func (p *Panel) Delete(ctx context.Context) error {
	var (
		id  int64
		has bool
	)
	p.loop.Run(func() {
		id, has = p.store.SelectedID()
	})
	if !has {
		return ErrNoSelection
	}

	if err := p.backend.DeleteSong(ctx, id); err != nil {
		p.loop.Run(func() {
			p.store.SetError(store.ErrorMessage(err, deleteFailed))
		})
		return fmt.Errorf("delete song %d: %w", id, err)
	}

	p.loop.Run(func() {
		p.store.Remove(id)
		_ = p.store.Select(nil)
	})
	return nil
}

// Dismiss closes the panel by clearing the selection.
func (p *Panel) Dismiss() {
	p.loop.Run(func() {
		_ = p.store.Select(nil)
	})
}
