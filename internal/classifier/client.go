package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
)

const userAgent = "genre-decagon/1.0"

// Sentinel errors.
var (
	// ErrUnprocessable is returned when the service cannot decode the audio.
	ErrUnprocessable = errors.New("audio could not be processed")

	// ErrInvalidPrediction is returned when the service answers with an
	// unknown genre.
	ErrInvalidPrediction = errors.New("invalid prediction")
)

// Prediction is the genre distribution for one track.
type Prediction struct {
	Genre         genre.Genre         `json:"genre"`
	Confidence    float64             `json:"confidence"`
	Probabilities model.Probabilities `json:"probabilities"`
	Duration      *float64            `json:"duration,omitempty"`
}

// Status is the service health report.
type Status struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Client calls the inference service.
type Client struct {
	baseURL    string
	segments   int
	httpClient *http.Client
}

// NewClient creates a client from the provided configuration.
func NewClient(cfg *Config) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		segments: cfg.Segments,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Predict uploads audio and returns its predicted genre distribution.
func (c *Client) Predict(ctx context.Context, name string, audio io.Reader) (*Prediction, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := mw.WriteField("segments", strconv.Itoa(c.segments))
		if err == nil {
			var part io.Writer
			if part, err = mw.CreateFormFile("file", name); err == nil {
				_, err = io.Copy(part, audio)
			}
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", pr)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	var p Prediction
	if err := c.do(req, &p); err != nil {
		return nil, fmt.Errorf("predicting %s: %w", name, err)
	}
	if !p.Genre.Valid() {
		return nil, fmt.Errorf("%w: genre %q", ErrInvalidPrediction, p.Genre)
	}
	return &p, nil
}

// Health reports whether the service has a model loaded.
func (c *Client) Health(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	var s Status
	if err := c.do(req, &s); err != nil {
		return nil, fmt.Errorf("checking classifier health: %w", err)
	}
	return &s, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrUnprocessable, detail(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("classifier returned %d: %s", resp.StatusCode, detail(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func detail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return strings.TrimSpace(string(body))
}
