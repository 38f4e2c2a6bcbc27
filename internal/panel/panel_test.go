package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/store"
)

type fakeDeleter struct {
	err     error
	deleted []int64
}

func (f *fakeDeleter) DeleteSong(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type detailErr string

func (e detailErr) Error() string  { return "backend: " + string(e) }
func (e detailErr) Detail() string { return string(e) }

func fullSong() model.Song {
	duration := 185.7
	return model.Song{
		ID:             7,
		Title:          "So What",
		Source:         model.SourceRemote,
		SourceURL:      "https://youtu.be/abc",
		PredictedGenre: genre.Jazz,
		Confidence:     0.873,
		Probabilities: model.Probabilities{
			genre.Blues: 0.05,
			genre.Jazz:  0.873,
			genre.Rock:  0.05,
			genre.Pop:   0.027,
		},
		Position:  model.Position{X: 0.1234, Y: -0.5},
		CreatedAt: model.Timestamp{Time: time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)},
		Duration:  &duration,
	}
}

func newPanel(t *testing.T, d Deleter, songs ...model.Song) (*Panel, *store.Store) {
	t.Helper()
	s := store.New()
	s.Initialize(&model.Snapshot{Songs: songs})
	return New(s, d, &store.Loop{}), s
}

func TestViewWithoutSelection(t *testing.T) {
	p, _ := newPanel(t, &fakeDeleter{}, fullSong())
	if v := p.View(); v != nil {
		t.Errorf("View() = %+v, want nil", v)
	}
}

func TestView(t *testing.T) {
	p, s := newPanel(t, &fakeDeleter{}, fullSong())
	if err := s.SelectID(7); err != nil {
		t.Fatal(err)
	}

	v := p.View()
	if v == nil {
		t.Fatal("View() = nil")
	}

	tests := []struct {
		name, got, want string
	}{
		{"title", v.Title, "So What"},
		{"source", v.SourceLabel, "YouTube"},
		{"genre", v.GenreName, "Jazz"},
		{"confidence", v.Confidence, "87.3%"},
		{"position", v.Position, "(0.12, -0.50)"},
		{"duration", v.Duration, "3:05"},
		{"added", v.Added, "Mar 9, 2024 2:05 PM"},
		{"url", v.SourceURL, "https://youtu.be/abc"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}

	if len(v.Breakdown) != genre.Count {
		t.Fatalf("len(Breakdown) = %d, want %d", len(v.Breakdown), genre.Count)
	}
	// Ties keep registry order: blues before rock, then zero-valued genres.
	wantOrder := []genre.Genre{genre.Jazz, genre.Blues, genre.Rock, genre.Pop, genre.Classical}
	for i, g := range wantOrder {
		if v.Breakdown[i].Genre != g {
			t.Errorf("Breakdown[%d] = %s, want %s", i, v.Breakdown[i].Genre, g)
		}
	}
	if !v.Breakdown[0].Primary || v.Breakdown[1].Primary {
		t.Error("primary genre not flagged on the first bar only")
	}
}

func TestViewShowsGivenGenre(t *testing.T) {
	song := fullSong()
	song.PredictedGenre = genre.Metal // not the argmax
	p, s := newPanel(t, &fakeDeleter{}, song)
	_ = s.SelectID(song.ID)

	v := p.View()
	if v.Genre != genre.Metal || v.Confidence != "87.3%" {
		t.Errorf("View() genre = %s %s, want metal 87.3%%", v.Genre, v.Confidence)
	}
}

func TestBreakdownUnnormalized(t *testing.T) {
	probs := model.Probabilities{}
	for _, g := range genre.All {
		probs[g] = 0.103
	}

	bars := Breakdown(probs, genre.Blues)
	if len(bars) != genre.Count {
		t.Fatalf("len(bars) = %d, want %d", len(bars), genre.Count)
	}
	total := 0.0
	for i, b := range bars {
		if b.Genre != genre.All[i] {
			t.Errorf("bars[%d] = %s, want registry order", i, b.Genre)
		}
		total += b.Width
	}
	if total < 102.9 || total > 103.1 {
		t.Errorf("total width = %v, want 103", total)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{59.9, "0:59"},
		{60, "1:00"},
		{3725, "62:05"},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDelete(t *testing.T) {
	other := fullSong()
	other.ID = 8
	d := &fakeDeleter{}
	p, s := newPanel(t, d, fullSong(), other)
	_ = s.SelectID(7)

	var changes []store.Change
	s.Subscribe(func(c store.Change) { changes = append(changes, c) })

	if err := p.Delete(context.Background()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(d.deleted) != 1 || d.deleted[0] != 7 {
		t.Errorf("backend deleted %v, want [7]", d.deleted)
	}
	if _, ok := s.Song(7); ok {
		t.Error("song 7 still in store")
	}
	if s.Selected() != nil {
		t.Error("selection not cleared")
	}
	if len(changes) != 1 || !changes[0].SelectionChanged {
		t.Errorf("changes = %+v, want one removal clearing the selection", changes)
	}
}

func TestDeleteFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"detail", detailErr("Song not found"), "Song not found"},
		{"fallback", errors.New("connection refused"), "Failed to delete song"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s := newPanel(t, &fakeDeleter{err: tt.err}, fullSong())
			_ = s.SelectID(7)
			before := s.CollectionVersion()

			if err := p.Delete(context.Background()); !errors.Is(err, tt.err) {
				t.Fatalf("Delete() error = %v, want %v", err, tt.err)
			}
			if got := s.State().Error; got != tt.wantMsg {
				t.Errorf("error slot = %q, want %q", got, tt.wantMsg)
			}
			if s.CollectionVersion() != before || s.Len() != 1 {
				t.Error("collection changed after failed delete")
			}
			if id, ok := s.SelectedID(); !ok || id != 7 {
				t.Error("selection changed after failed delete")
			}
		})
	}
}

func TestDeleteWithoutSelection(t *testing.T) {
	d := &fakeDeleter{}
	p, _ := newPanel(t, d, fullSong())
	if err := p.Delete(context.Background()); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Delete() error = %v, want ErrNoSelection", err)
	}
	if len(d.deleted) != 0 {
		t.Error("backend called without a selection")
	}
}

func TestDismiss(t *testing.T) {
	p, s := newPanel(t, &fakeDeleter{}, fullSong())
	_ = s.SelectID(7)
	p.Dismiss()
	if p.View() != nil {
		t.Error("View() != nil after Dismiss")
	}
	if s.Len() != 1 {
		t.Error("Dismiss changed the collection")
	}
}
