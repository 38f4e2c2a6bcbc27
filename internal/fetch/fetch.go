// Package fetch downloads the audio track of a YouTube video with yt-dlp so
// that it can be classified like an uploaded file.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 5 * time.Minute

// ErrNoAudio is returned when yt-dlp finishes without producing an mp3.
var ErrNoAudio = errors.New("no audio produced")

// Audio is a downloaded track on local disk. Close removes it.
type Audio struct {
	Path  string
	Title string
	dir   string
}

// Open opens the downloaded file for reading.
func (a *Audio) Open() (*os.File, error) {
	return os.Open(a.Path)
}

// Name returns the file name to report to the classifier.
func (a *Audio) Name() string {
	return filepath.Base(a.Path)
}

// Close deletes the downloaded file.
func (a *Audio) Close() error {
	return os.RemoveAll(a.dir)
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout bounds each download.
func WithTimeout(d time.Duration) Option {
	return func(dl *Downloader) {
		dl.timeout = d
	}
}

// WithLogger sets the logger used for download progress.
func WithLogger(logger *log.Logger) Option {
	return func(dl *Downloader) {
		dl.logger = logger
	}
}

// Downloader fetches audio into a scratch directory.
type Downloader struct {
	dir     string
	timeout time.Duration
	logger  *log.Logger
}

// New creates a downloader writing under dir. An empty dir means the
// system temporary directory.
func New(dir string, opts ...Option) *Downloader {
	d := &Downloader{
		dir:     dir,
		timeout: DefaultTimeout,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Install makes sure a yt-dlp binary is available, downloading one if
// needed.
func (d *Downloader) Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("installing yt-dlp: %w", err)
	}
	return nil
}

// Download fetches the audio of videoURL as an mp3. The caller must Close
// the returned Audio.
func (d *Downloader) Download(ctx context.Context, videoURL string) (*Audio, error) {
	dir, err := os.MkdirTemp(d.dir, "fetch-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	dl := ytdlp.New().
		PrintJSON().
		NoPlaylist().
		ExtractAudio().
		AudioFormat("mp3").
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(dir, "%(id)s.%(ext)s"))

	dl.ProgressFunc(time.Second, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			d.logger.Printf("fetch: %s %.0f%%", videoURL,
				float64(update.DownloadedBytes)/float64(update.TotalBytes)*100)
		}
	})

	result, err := dl.Run(ctx, videoURL)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("downloading %s: %w", videoURL, err)
	}

	path, err := findAudio(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("downloading %s: %w", videoURL, err)
	}

	audio := &Audio{Path: path, dir: dir}
	if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 && info[0].Title != nil {
		audio.Title = *info[0].Title
	}
	if audio.Title == "" {
		audio.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return audio, nil
}

// findAudio returns the mp3 yt-dlp left in dir.
func findAudio(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.mp3"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNoAudio
	}
	return matches[0], nil
}
