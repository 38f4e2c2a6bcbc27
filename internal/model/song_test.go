package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/justestif/go-genre-decagon/internal/genre"
)

func TestSongUnmarshal(t *testing.T) {
	raw := `{
		"id": 7,
		"title": "So What",
		"source": "youtube",
		"source_url": "https://youtu.be/abc",
		"predicted_genre": "jazz",
		"confidence": 0.91,
		"probabilities": {"jazz": 0.91, "blues": 0.09},
		"position": {"x": 0.1, "y": -0.4},
		"created_at": "2024-03-01T10:00:00Z",
		"duration": 545.5
	}`

	var s Song
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.Source != SourceRemote {
		t.Errorf("Source = %q, want %q", s.Source, SourceRemote)
	}
	if s.PredictedGenre != genre.Jazz {
		t.Errorf("PredictedGenre = %q, want jazz", s.PredictedGenre)
	}
	if s.Probabilities[genre.Blues] != 0.09 {
		t.Errorf("Probabilities[blues] = %v, want 0.09", s.Probabilities[genre.Blues])
	}
	if s.Duration == nil || *s.Duration != 545.5 {
		t.Errorf("Duration = %v, want 545.5", s.Duration)
	}
	if s.Position != (Position{X: 0.1, Y: -0.4}) {
		t.Errorf("Position = %+v", s.Position)
	}
}

func TestSourceUnmarshalRejectsUnknown(t *testing.T) {
	var s Source
	if err := s.UnmarshalText([]byte("tape")); err == nil {
		t.Fatal("UnmarshalText(tape) error = nil, want error")
	}
}

func TestSourceLabel(t *testing.T) {
	if got := SourceRemote.Label(); got != "YouTube" {
		t.Errorf("SourceRemote.Label() = %q", got)
	}
	if got := SourceUpload.Label(); got != "Uploaded File" {
		t.Errorf("SourceUpload.Label() = %q", got)
	}
}

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{`"2024-03-01T10:00:00Z"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{`"2024-03-01T10:00:00.250000"`, time.Date(2024, 3, 1, 10, 0, 0, 250e6, time.UTC), false},
		{`"2024-03-01 10:00:00"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{`null`, time.Time{}, false},
		{`"yesterday"`, time.Time{}, true},
		{`12`, time.Time{}, true},
	}
	for _, tt := range tests {
		var ts Timestamp
		err := json.Unmarshal([]byte(tt.in), &ts)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !ts.Equal(tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, ts.Time, tt.want)
		}
	}
}
