// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/justestif/go-genre-decagon/internal/classifier"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "127.0.0.1:8080"

// DefaultMaxUploadMB is the default upload limit in megabytes.
const DefaultMaxUploadMB = 50

// ErrNoBackend is returned when neither BACKEND_URL nor DATABASE_URL with
// CLASSIFIER_URL is set.
var ErrNoBackend = errors.New("set BACKEND_URL, or DATABASE_URL and CLASSIFIER_URL")

// Mode selects which backend serves the collection.
type Mode string

const (
	// ModeRemote forwards every collection call to another server's API.
	ModeRemote Mode = "remote"
	// ModeLocal classifies and stores songs in this process.
	ModeLocal Mode = "local"
)

// Config holds application settings.
type Config struct {
	Addr        string
	MaxUploadMB int
	Mode        Mode

	// Remote mode.
	BackendURL string

	// Local mode.
	DatabaseURL string
	Classifier  *classifier.Config
	FetchDir    string // scratch space for downloads; empty means the OS default
	Clusters    int    // genre groups shown beside the plot
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Addr:        getEnv("ADDR", DefaultAddr),
		MaxUploadMB: DefaultMaxUploadMB,
		BackendURL:  os.Getenv("BACKEND_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		FetchDir:    os.Getenv("FETCH_DIR"),
		Clusters:    3,
	}

	var err error
	if cfg.MaxUploadMB, err = positiveInt("MAX_UPLOAD_MB", DefaultMaxUploadMB); err != nil {
		return nil, err
	}
	if cfg.Clusters, err = positiveInt("GENRE_GROUPS", cfg.Clusters); err != nil {
		return nil, err
	}

	if cfg.BackendURL != "" {
		cfg.Mode = ModeRemote
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrNoBackend
	}
	cfg.Classifier, err = classifier.LoadConfig()
	if errors.Is(err, classifier.ErrMissingURL) {
		return nil, ErrNoBackend
	}
	if err != nil {
		return nil, err
	}
	cfg.Mode = ModeLocal
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func positiveInt(key string, defaultValue int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
