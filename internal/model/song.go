// Package model holds the song types shared by the store, the renderer and the
// backend collaborators.
package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/justestif/go-genre-decagon/internal/genre"
)

// Source records where a song's audio came from.
type Source string

const (
	SourceUpload Source = "upload"
	SourceRemote Source = "remote"
)

// UnmarshalText accepts the backend's "youtube" tag as an alias for remote.
func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "upload":
		*s = SourceUpload
	case "remote", "youtube":
		*s = SourceRemote
	default:
		return fmt.Errorf("unknown song source %q", text)
	}
	return nil
}

// Label returns the text shown next to a song's title.
func (s Source) Label() string {
	if s == SourceRemote {
		return "YouTube"
	}
	return "Uploaded File"
}

// Probabilities maps every genre to its predicted probability.
// Entries are expected to sum to 1 but that is never enforced.
type Probabilities map[genre.Genre]float64

// Position is a point in normalized plot space, nominally [-1,1]^2.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Song is a classified song as returned by the backend.
type Song struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Source         Source        `json:"source"`
	SourceURL      string        `json:"source_url,omitempty"`
	PredictedGenre genre.Genre   `json:"predicted_genre"`
	Confidence     float64       `json:"confidence"`
	Probabilities  Probabilities `json:"probabilities"`
	Position       Position      `json:"position"`
	CreatedAt      Timestamp     `json:"created_at"`
	Duration       *float64      `json:"duration,omitempty"` // seconds
}

// Timestamp is a creation time. It also accepts the zone-less ISO 8601
// form some backends emit, read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON parses a JSON string or null.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*t = Timestamp{}
		return nil
	}
	unquoted, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", s, err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, unquoted); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unrecognized format", unquoted)
}

// Snapshot is the full collection returned by the cluster-data endpoint.
type Snapshot struct {
	Songs    []Song   `json:"songs"`
	Vertices []Vertex `json:"vertices,omitempty"`
}

// Vertex is the wire form of a decagon vertex in unit-circle coordinates.
type Vertex struct {
	Genre genre.Genre `json:"genre"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Angle float64     `json:"angle"`
	Color string      `json:"color"`
}

// SongList is one page of the song listing.
type SongList struct {
	Songs  []Song `json:"songs"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Health reports whether the backend can classify and store songs.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	DBConnected bool   `json:"db_connected"`
}
