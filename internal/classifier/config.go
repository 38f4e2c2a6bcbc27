// Package classifier is a client for the audio inference service that
// extracts features from a track and predicts its genre distribution.
package classifier

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrMissingURL is returned when CLASSIFIER_URL is not set.
var ErrMissingURL = errors.New("missing CLASSIFIER_URL environment variable")

// Defaults.
const (
	DefaultSegments = 5
	DefaultTimeout  = 2 * time.Minute
)

// Config holds inference service configuration.
type Config struct {
	URL      string
	Segments int           // clips averaged per prediction
	Timeout  time.Duration // per prediction
}

// LoadConfig reads classifier configuration from environment variables.
// Returns ErrMissingURL if CLASSIFIER_URL is not set.
func LoadConfig() (*Config, error) {
	u := os.Getenv("CLASSIFIER_URL")
	if u == "" {
		return nil, ErrMissingURL
	}

	cfg := &Config{
		URL:      u,
		Segments: DefaultSegments,
		Timeout:  DefaultTimeout,
	}

	if s := os.Getenv("CLASSIFIER_SEGMENTS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid CLASSIFIER_SEGMENTS %q", s)
		}
		cfg.Segments = n
	}

	if s := os.Getenv("CLASSIFIER_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid CLASSIFIER_TIMEOUT %q", s)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}
