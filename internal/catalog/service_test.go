package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/justestif/go-genre-decagon/internal/classifier"
	"github.com/justestif/go-genre-decagon/internal/db"
	"github.com/justestif/go-genre-decagon/internal/fetch"
	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/layout"
	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/store"
)

type memSongs struct {
	rows    []db.Song
	nextID  int64
	lastOpt db.ListOptions
	err     error
}

func (m *memSongs) Create(_ context.Context, song *db.Song) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	song.ID = m.nextID
	song.CreatedAt = time.Date(2024, 1, 1, 0, 0, int(m.nextID), 0, time.UTC)
	m.rows = slices.Insert(m.rows, 0, *song)
	return nil
}

func (m *memSongs) Get(_ context.Context, id int64) (*db.Song, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memSongs) List(_ context.Context, opts db.ListOptions) ([]db.Song, int, error) {
	m.lastOpt = opts
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.rows, len(m.rows), nil
}

func (m *memSongs) Delete(_ context.Context, id int64) error {
	i := slices.IndexFunc(m.rows, func(r db.Song) bool { return r.ID == id })
	if i < 0 {
		return db.ErrNotFound
	}
	m.rows = slices.Delete(m.rows, i, i+1)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeClassifier struct {
	prediction *classifier.Prediction
	err        error
	gotName    string
	gotBody    string
	healthy    bool
}

func (f *fakeClassifier) Predict(_ context.Context, name string, r io.Reader) (*classifier.Prediction, error) {
	f.gotName = name
	b, _ := io.ReadAll(r)
	f.gotBody = string(b)
	return f.prediction, f.err
}

func (f *fakeClassifier) Health(context.Context) (*classifier.Status, error) {
	if !f.healthy {
		return nil, errors.New("connection refused")
	}
	return &classifier.Status{Status: "ok", ModelLoaded: true}, nil
}

type fakeFetcher struct {
	dir string
	err error
}

func (f *fakeFetcher) Download(_ context.Context, _ string) (*fetch.Audio, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, "vid.mp3")
	if err := os.WriteFile(path, []byte("downloaded"), 0o644); err != nil {
		return nil, err
	}
	return &fetch.Audio{Path: path, Title: "Remote Song"}, nil
}

func rockPrediction() *classifier.Prediction {
	d := 200.0
	return &classifier.Prediction{
		Genre:         genre.Rock,
		Confidence:    0.75,
		Probabilities: model.Probabilities{genre.Rock: 0.75, genre.Metal: 0.25},
		Duration:      &d,
	}
}

func newService(t *testing.T) (*Service, *memSongs, *fakeClassifier) {
	t.Helper()
	songs := &memSongs{}
	cls := &fakeClassifier{prediction: rockPrediction(), healthy: true}
	return New(songs, fakePinger{}, cls, &fakeFetcher{dir: t.TempDir()}), songs, cls
}

func TestUploadFile(t *testing.T) {
	svc, songs, cls := newService(t)

	song, err := svc.UploadFile(context.Background(), "My Track.MP3", readerOf("mp3data"))
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}

	if song.ID != 1 || song.Title != "My Track" || song.Source != model.SourceUpload {
		t.Errorf("song = %+v", song)
	}
	if song.PredictedGenre != genre.Rock || song.Confidence != 0.75 {
		t.Errorf("prediction = %s %v", song.PredictedGenre, song.Confidence)
	}
	want := layout.PositionFor(song.Probabilities)
	if song.Position != want {
		t.Errorf("Position = %+v, want %+v", song.Position, want)
	}
	if cls.gotName != "My Track.MP3" || cls.gotBody != "mp3data" {
		t.Errorf("classifier got %q %q", cls.gotName, cls.gotBody)
	}
	if len(songs.rows) != 1 {
		t.Errorf("stored %d rows, want 1", len(songs.rows))
	}
}

func TestUploadFileRejectsNonMP3(t *testing.T) {
	svc, songs, _ := newService(t)

	_, err := svc.UploadFile(context.Background(), "track.wav", readerOf("x"))
	if StatusOf(err) != http.StatusBadRequest {
		t.Errorf("StatusOf() = %d, want 400", StatusOf(err))
	}
	if len(songs.rows) != 0 {
		t.Error("invalid upload was stored")
	}
}

func TestUploadClassifierFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unprocessable", classifier.ErrUnprocessable, http.StatusUnprocessableEntity},
		{"down", errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, songs, cls := newService(t)
			cls.err = tt.err

			_, err := svc.UploadFile(context.Background(), "a.mp3", readerOf("x"))
			if StatusOf(err) != tt.wantStatus {
				t.Errorf("StatusOf() = %d, want %d", StatusOf(err), tt.wantStatus)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error %v does not wrap %v", err, tt.err)
			}
			if len(songs.rows) != 0 {
				t.Error("failed upload was stored")
			}
		})
	}
}

func TestUploadURL(t *testing.T) {
	svc, _, cls := newService(t)

	song, err := svc.UploadURL(context.Background(), " https://youtu.be/abc ")
	if err != nil {
		t.Fatalf("UploadURL() error = %v", err)
	}
	if song.Title != "Remote Song" || song.Source != model.SourceRemote || song.SourceURL != "https://youtu.be/abc" {
		t.Errorf("song = %+v", song)
	}
	if cls.gotName != "vid.mp3" || cls.gotBody != "downloaded" {
		t.Errorf("classifier got %q %q", cls.gotName, cls.gotBody)
	}

	if _, err := svc.UploadURL(context.Background(), "https://example.com/v"); StatusOf(err) != http.StatusBadRequest {
		t.Errorf("invalid URL status = %d, want 400", StatusOf(err))
	}
}

func TestUploadURLDownloadFailure(t *testing.T) {
	svc := New(&memSongs{}, fakePinger{}, &fakeClassifier{}, &fakeFetcher{err: errors.New("video unavailable")})

	_, err := svc.UploadURL(context.Background(), "https://youtu.be/abc")
	if got := store.ErrorMessage(err, "fallback"); got != "YouTube download failed" {
		t.Errorf("ErrorMessage() = %q", got)
	}
}

func TestListClampsLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{20, 20},
		{10000, MaxLimit},
	}
	for _, tt := range tests {
		svc, songs, _ := newService(t)
		list, err := svc.List(context.Background(), ListOptions{Limit: tt.in, Offset: -1, Genre: "rock"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list.Limit != tt.want || songs.lastOpt.Limit != tt.want {
			t.Errorf("List(limit %d) used %d, want %d", tt.in, songs.lastOpt.Limit, tt.want)
		}
		if list.Offset != 0 || songs.lastOpt.Genre != "rock" {
			t.Errorf("List() opts = %+v", songs.lastOpt)
		}
	}
}

func TestSnapshotAndDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, name := range []string{"a.mp3", "b.mp3"} {
		if _, err := svc.UploadFile(ctx, name, readerOf("x")); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Songs) != 2 || snap.Songs[0].Title != "b" {
		t.Errorf("Snapshot() songs = %+v", snap.Songs)
	}
	if len(snap.Vertices) != genre.Count {
		t.Errorf("Snapshot() vertices = %d", len(snap.Vertices))
	}

	if err := svc.DeleteSong(ctx, 1); err != nil {
		t.Fatalf("DeleteSong() error = %v", err)
	}
	err = svc.DeleteSong(ctx, 1)
	if StatusOf(err) != http.StatusNotFound || store.ErrorMessage(err, "") != "Song not found" {
		t.Errorf("second DeleteSong() error = %v", err)
	}
	if _, err := svc.Song(ctx, 1); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Song(deleted) error = %v", err)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		healthy    bool
		wantStatus string
	}{
		{"all up", nil, true, "healthy"},
		{"db down", errors.New("refused"), true, "degraded"},
		{"classifier down", nil, false, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&memSongs{}, fakePinger{err: tt.pingErr}, &fakeClassifier{healthy: tt.healthy}, nil)
			h, err := svc.Health(context.Background())
			if err != nil {
				t.Fatalf("Health() error = %v", err)
			}
			if h.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", h.Status, tt.wantStatus)
			}
		})
	}
}

func readerOf(s string) io.Reader {
	return &stringReader{s: s}
}

type stringReader struct {
	s string
	i int
}

func (r *stringReader) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.i:])
	r.i += n
	return n, nil
}
