// Package api is a client for a remote genre backend: the service that stores
// songs and classifies uploads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/justestif/go-genre-decagon/internal/model"
)

const (
	userAgent      = "genre-decagon/1.0"
	defaultTimeout = 10 * time.Second
)

// ErrUnavailable is returned when the backend keeps answering with a
// temporary failure after retries.
var ErrUnavailable = errors.New("backend unavailable")

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Detail returns the backend's explanation, suitable for showing to users.
func (e *Error) Detail() string {
	return e.Message
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.uploadClient = hc
	}
}

// WithRetryDelays sets the waits between retries of idempotent requests.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(c *Client) {
		c.delays = delays
	}
}

// Client talks to a remote backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	delays     []time.Duration

	// Uploads have no timeout: classification can take minutes.
	uploadClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8000/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: defaultTimeout},
		delays:       []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		uploadClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot fetches every song and the decagon vertices.
func (c *Client) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := c.getJSON(ctx, "/cluster-data", nil, &snap); err != nil {
		return nil, fmt.Errorf("fetching cluster data: %w", err)
	}
	return &snap, nil
}

// ListOptions filters and pages the song listing.
type ListOptions struct {
	Limit  int
	Offset int
	Genre  string
}

// Songs fetches one page of songs, newest first.
func (c *Client) Songs(ctx context.Context, opts ListOptions) (*model.SongList, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Genre != "" {
		params.Set("genre", opts.Genre)
	}

	var list model.SongList
	if err := c.getJSON(ctx, "/songs", params, &list); err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	return &list, nil
}

// Song fetches a single song.
func (c *Client) Song(ctx context.Context, id int64) (*model.Song, error) {
	var song model.Song
	if err := c.getJSON(ctx, "/songs/"+strconv.FormatInt(id, 10), nil, &song); err != nil {
		return nil, fmt.Errorf("fetching song %d: %w", id, err)
	}
	return &song, nil
}

// Health fetches the backend status.
func (c *Client) Health(ctx context.Context) (*model.Health, error) {
	var h model.Health
	if err := c.getJSON(ctx, "/health", nil, &h); err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	return &h, nil
}

// UploadFile streams an mp3 to the backend and returns the classified song.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (*model.Song, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload/mp3", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	defer pr.Close()

	var song model.Song
	if err := c.doJSON(c.uploadClient, req, &song); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}
	return &song, nil
}

// UploadURL asks the backend to download and classify a YouTube video.
func (c *Client) UploadURL(ctx context.Context, videoURL string) (*model.Song, error) {
	body, err := json.Marshal(uploadURLRequest{URL: videoURL})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload/youtube", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var song model.Song
	if err := c.doJSON(c.uploadClient, req, &song); err != nil {
		return nil, fmt.Errorf("processing %s: %w", videoURL, err)
	}
	return &song, nil
}

// DeleteSong deletes a song.
func (c *Client) DeleteSong(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/songs/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	if err := c.doJSON(c.httpClient, req, nil); err != nil {
		return fmt.Errorf("deleting song %d: %w", id, err)
	}
	return nil
}

// getJSON performs a GET, retrying temporary failures with backoff.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.delays[attempt-1]):
			}
		}

		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		err = c.doJSON(c.httpClient, req, out)
		if err == nil {
			return nil
		}

		if retryable(err) {
			lastErr = err
			continue
		}
		return err
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends req and decodes a successful body into out. Error bodies are
// decoded into *Error.
func (c *Client) doJSON(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Message = eb.message()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
