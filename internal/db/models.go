package db

import (
	"time"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
)

// Song is a stored song row.
type Song struct {
	ID             int64
	Title          string
	Source         string  // "upload" or "remote"
	SourceURL      *string // nullable
	Duration       *float64
	PredictedGenre string
	Confidence     float64
	Probabilities  map[string]float64
	ClusterX       float64
	ClusterY       float64
	CreatedAt      time.Time
}

// ToModel converts the row to the shared song type.
func (s *Song) ToModel() model.Song {
	probs := make(model.Probabilities, len(s.Probabilities))
	for g, p := range s.Probabilities {
		probs[genre.Genre(g)] = p
	}

	m := model.Song{
		ID:             s.ID,
		Title:          s.Title,
		Source:         model.Source(s.Source),
		PredictedGenre: genre.Genre(s.PredictedGenre),
		Confidence:     s.Confidence,
		Probabilities:  probs,
		Position:       model.Position{X: s.ClusterX, Y: s.ClusterY},
		CreatedAt:      model.Timestamp{Time: s.CreatedAt},
		Duration:       s.Duration,
	}
	if s.SourceURL != nil {
		m.SourceURL = *s.SourceURL
	}
	return m
}

// FromModel builds a row from a song. ID and CreatedAt are assigned by the
// database on insert.
func FromModel(m model.Song) *Song {
	probs := make(map[string]float64, len(m.Probabilities))
	for g, p := range m.Probabilities {
		probs[string(g)] = p
	}

	s := &Song{
		Title:          m.Title,
		Source:         string(m.Source),
		Duration:       m.Duration,
		PredictedGenre: string(m.PredictedGenre),
		Confidence:     m.Confidence,
		Probabilities:  probs,
		ClusterX:       m.Position.X,
		ClusterY:       m.Position.Y,
	}
	if m.SourceURL != "" {
		url := m.SourceURL
		s.SourceURL = &url
	}
	return s
}

// ListOptions filters and pages a song listing.
type ListOptions struct {
	Genre  string // empty means every genre
	Limit  int
	Offset int
}
