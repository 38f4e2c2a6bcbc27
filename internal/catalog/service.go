// Package catalog is the in-process backend: it classifies new audio, stores
// songs and serves the collection.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/justestif/go-genre-decagon/internal/classifier"
	"github.com/justestif/go-genre-decagon/internal/db"
	"github.com/justestif/go-genre-decagon/internal/fetch"
	"github.com/justestif/go-genre-decagon/internal/layout"
	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/upload"
)

// Listing bounds.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Error is a failure with a message meant for users and the HTTP status
// that best describes it.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Detail returns the user-facing message.
func (e *Error) Detail() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// Songs stores songs.
type Songs interface {
	Create(ctx context.Context, song *db.Song) error
	Get(ctx context.Context, id int64) (*db.Song, error)
	List(ctx context.Context, opts db.ListOptions) ([]db.Song, int, error)
	Delete(ctx context.Context, id int64) error
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Classifier predicts genre distributions.
type Classifier interface {
	Predict(ctx context.Context, name string, audio io.Reader) (*classifier.Prediction, error)
	Health(ctx context.Context) (*classifier.Status, error)
}

// Fetcher downloads remote audio.
type Fetcher interface {
	Download(ctx context.Context, videoURL string) (*fetch.Audio, error)
}

// Service handles song classification and persistence.
type Service struct {
	songs      Songs
	pinger     Pinger
	classifier Classifier
	fetcher    Fetcher
}

// New creates a new catalog service.
func New(songs Songs, pinger Pinger, cls Classifier, fetcher Fetcher) *Service {
	return &Service{
		songs:      songs,
		pinger:     pinger,
		classifier: cls,
		fetcher:    fetcher,
	}
}

// Snapshot returns every song, newest first, with the decagon vertices.
func (s *Service) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	rows, _, err := s.songs.List(ctx, db.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("loading songs: %w", err)
	}
	return &model.Snapshot{
		Songs:    toModels(rows),
		Vertices: layout.WireVertices(),
	}, nil
}

// ListOptions filters and pages a listing.
type ListOptions struct {
	Limit  int
	Offset int
	Genre  string
}

// List returns a page of songs. The limit defaults to DefaultLimit and is
// capped at MaxLimit.
func (s *Service) List(ctx context.Context, opts ListOptions) (*model.SongList, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	offset := max(opts.Offset, 0)

	rows, total, err := s.songs.List(ctx, db.ListOptions{
		Genre:  opts.Genre,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}

	return &model.SongList{
		Songs:  toModels(rows),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Song returns one song.
func (s *Service) Song(ctx context.Context, id int64) (*model.Song, error) {
	row, err := s.songs.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, &Error{Status: http.StatusNotFound, Message: "Song not found", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("loading song %d: %w", id, err)
	}
	song := row.ToModel()
	return &song, nil
}

// UploadFile classifies an uploaded mp3 and stores it.
func (s *Service) UploadFile(ctx context.Context, name string, r io.Reader) (*model.Song, error) {
	if !strings.EqualFold(filepath.Ext(name), ".mp3") {
		return nil, &Error{Status: http.StatusBadRequest, Message: "Invalid file type. Allowed: .mp3"}
	}

	title := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return s.classify(ctx, name, r, model.Song{
		Title:  title,
		Source: model.SourceUpload,
	})
}

// UploadURL downloads a YouTube video's audio, classifies it and stores it.
func (s *Service) UploadURL(ctx context.Context, videoURL string) (*model.Song, error) {
	if err := upload.ValidateURL(videoURL); err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Message: "Invalid YouTube URL", Err: err}
	}
	videoURL = strings.TrimSpace(videoURL)

	audio, err := s.fetcher.Download(ctx, videoURL)
	if err != nil {
		return nil, &Error{Status: http.StatusBadGateway, Message: "YouTube download failed", Err: err}
	}
	defer func() {
		if err := audio.Close(); err != nil {
			log.Printf("catalog: removing %s: %v", audio.Path, err)
		}
	}()

	f, err := audio.Open()
	if err != nil {
		return nil, fmt.Errorf("opening download: %w", err)
	}
	defer f.Close()

	return s.classify(ctx, audio.Name(), f, model.Song{
		Title:     audio.Title,
		Source:    model.SourceRemote,
		SourceURL: videoURL,
	})
}

// classify predicts r's genres, completes song with the prediction and
// stores it.
func (s *Service) classify(ctx context.Context, name string, r io.Reader, song model.Song) (*model.Song, error) {
	p, err := s.classifier.Predict(ctx, name, r)
	if errors.Is(err, classifier.ErrUnprocessable) {
		return nil, &Error{Status: http.StatusUnprocessableEntity, Message: "Could not process audio", Err: err}
	}
	if err != nil {
		return nil, &Error{Status: http.StatusBadGateway, Message: "Classification failed", Err: err}
	}

	song.PredictedGenre = p.Genre
	song.Confidence = p.Confidence
	song.Probabilities = p.Probabilities
	song.Position = layout.PositionFor(p.Probabilities)
	song.Duration = p.Duration

	row := db.FromModel(song)
	if err := s.songs.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("storing song: %w", err)
	}

	stored := row.ToModel()
	log.Printf("catalog: stored song %d %q as %s (%.0f%%)", stored.ID, stored.Title, stored.PredictedGenre, stored.Confidence*100)
	return &stored, nil
}

// DeleteSong removes a song.
func (s *Service) DeleteSong(ctx context.Context, id int64) error {
	err := s.songs.Delete(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return &Error{Status: http.StatusNotFound, Message: "Song not found", Err: err}
	}
	if err != nil {
		return fmt.Errorf("deleting song %d: %w", id, err)
	}
	return nil
}

// Health reports database and classifier status. It never fails: problems
// show up as a "degraded" status.
func (s *Service) Health(ctx context.Context) (*model.Health, error) {
	h := &model.Health{Status: "healthy"}

	if err := s.pinger.Ping(ctx); err != nil {
		log.Printf("catalog: database unreachable: %v", err)
	} else {
		h.DBConnected = true
	}

	if st, err := s.classifier.Health(ctx); err != nil {
		log.Printf("catalog: classifier unreachable: %v", err)
	} else {
		h.ModelLoaded = st.ModelLoaded
	}

	if !h.DBConnected || !h.ModelLoaded {
		h.Status = "degraded"
	}
	return h, nil
}

func toModels(rows []db.Song) []model.Song {
	songs := make([]model.Song, len(rows))
	for i := range rows {
		songs[i] = rows[i].ToModel()
	}
	return songs
}
