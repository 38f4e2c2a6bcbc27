// Package upload validates user-supplied audio and runs the upload flows that
// feed new songs into a session's store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/store"
)

// DefaultMaxBytes is the largest file accepted unless configured otherwise.
const DefaultMaxBytes int64 = 50 << 20

const (
	fileFailed     = "Failed to upload file"
	urlFailed      = "Failed to process URL"
	duplicateSong  = "Song already in collection"
	progressStep   = 0.05
	processingMark = 1.0
)

// Validation errors. They are wrapped in a *ValidationError.
var (
	ErrMissingFile     = errors.New("no file selected")
	ErrInvalidFileType = errors.New("file is not an mp3")
	ErrFileTooLarge    = errors.New("file too large")
	ErrMissingURL      = errors.New("no url given")
	ErrInvalidURL      = errors.New("not a youtube url")
)

var youtubeURL = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+`)

// ValidationError reports input rejected before any network call. It is
// shown next to the form and never reaches the store.
type ValidationError struct {
	Err      error
	MaxBytes int64
}

func (e *ValidationError) Error() string {
	return "invalid upload: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Message returns the text shown to the user.
func (e *ValidationError) Message() string {
	switch {
	case errors.Is(e.Err, ErrMissingFile):
		return "Please select a file"
	case errors.Is(e.Err, ErrInvalidFileType):
		return "Please upload a valid MP3 file"
	case errors.Is(e.Err, ErrFileTooLarge):
		return fmt.Sprintf("File size must be less than %dMB", e.MaxBytes>>20)
	case errors.Is(e.Err, ErrMissingURL):
		return "Please enter a URL"
	case errors.Is(e.Err, ErrInvalidURL):
		return "Please enter a valid YouTube URL"
	default:
		return e.Err.Error()
	}
}

// Backend classifies uploaded audio.
type Backend interface {
	UploadFile(ctx context.Context, name string, r io.Reader) (*model.Song, error)
	UploadURL(ctx context.Context, url string) (*model.Song, error)
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithMaxBytes sets the file size limit.
func WithMaxBytes(n int64) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.maxBytes = n
		}
	}
}

// Uploader runs uploads for one session.
type Uploader struct {
	store    *store.Store
	backend  Backend
	loop     store.Runner
	maxBytes int64
}

// New creates an uploader feeding s.
func New(s *store.Store, backend Backend, loop store.Runner, opts ...Option) *Uploader {
	u := &Uploader{
		store:    s,
		backend:  backend,
		loop:     loop,
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// MaxBytes returns the file size limit.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// ValidateFile checks a file's name, content type and size.
func (u *Uploader) ValidateFile(name, contentType string, size int64) error {
	if name == "" {
		return &ValidationError{Err: ErrMissingFile, MaxBytes: u.maxBytes}
	}
	if !isMP3(name, contentType) {
		return &ValidationError{Err: ErrInvalidFileType, MaxBytes: u.maxBytes}
	}
	if size > u.maxBytes {
		return &ValidationError{Err: ErrFileTooLarge, MaxBytes: u.maxBytes}
	}
	return nil
}

// ValidateURL checks that raw looks like a YouTube link.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &ValidationError{Err: ErrMissingURL}
	}
	if !youtubeURL.MatchString(raw) {
		return &ValidationError{Err: ErrInvalidURL}
	}
	return nil
}

func isMP3(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".mp3") {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "audio/mpeg"
}

// UploadFile validates and uploads a file, then adds the classified song to
// the store. Validation failures are returned without touching the store;
// backend failures land in the store's error slot.
//
// UploadFile performs I/O and must be called outside the loop.
func (u *Uploader) UploadFile(ctx context.Context, name, contentType string, size int64, r io.Reader) (*model.Song, error) {
	if err := u.ValidateFile(name, contentType, size); err != nil {
		return nil, err
	}

	u.begin(name, store.UploadUploading)
	body := &progressReader{r: r, size: size, report: func(p float64) {
		u.progress(name, p)
	}}

	song, err := u.backend.UploadFile(ctx, name, body)
	if err != nil {
		u.fail(name, store.ErrorMessage(err, fileFailed))
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	return u.finish(name, song)
}

// UploadURL validates and submits a YouTube link, then adds the classified
// song to the store.
//
// UploadURL performs I/O and must be called outside the loop.
func (u *Uploader) UploadURL(ctx context.Context, raw string) (*model.Song, error) {
	if err := ValidateURL(raw); err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)

	u.begin(raw, store.UploadProcessing)
	song, err := u.backend.UploadURL(ctx, raw)
	if err != nil {
		u.fail(raw, store.ErrorMessage(err, urlFailed))
		return nil, fmt.Errorf("upload %s: %w", raw, err)
	}
	return u.finish(raw, song)
}

func (u *Uploader) begin(name string, status store.UploadStatus) {
	u.loop.Run(func() {
		u.store.ClearError()
		u.store.SetUploadProgress(&store.UploadProgress{FileName: name, Status: status})
	})
}

func (u *Uploader) progress(name string, p float64) {
	status := store.UploadUploading
	if p >= processingMark {
		status = store.UploadProcessing
	}
	u.loop.Run(func() {
		u.store.SetUploadProgress(&store.UploadProgress{FileName: name, Progress: p, Status: status})
	})
}

func (u *Uploader) fail(name, msg string) {
	u.loop.Run(func() {
		u.store.SetError(msg)
		u.store.SetUploadProgress(&store.UploadProgress{FileName: name, Status: store.UploadError, Error: msg})
	})
}

func (u *Uploader) finish(name string, song *model.Song) (*model.Song, error) {
	var err error
	u.loop.Run(func() {
		if err = u.store.Add(*song); err != nil {
			u.store.SetError(duplicateSong)
			u.store.SetUploadProgress(&store.UploadProgress{FileName: name, Progress: 1, Status: store.UploadError, Error: duplicateSong})
			return
		}
		u.store.SetUploadProgress(&store.UploadProgress{FileName: name, Progress: 1, Status: store.UploadComplete})
	})
	if err != nil {
		return song, fmt.Errorf("add song %d: %w", song.ID, err)
	}
	return song, nil
}

// progressReader reports read progress in steps of at least progressStep.
type progressReader struct {
	r      io.Reader
	size   int64
	read   int64
	last   float64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.size > 0 {
		frac := min(float64(p.read)/float64(p.size), 1)
		if frac-p.last >= progressStep || (frac == 1 && p.last < 1) {
			p.last = frac
			p.report(frac)
		}
	}
	return n, err
}
