package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/justestif/go-genre-decagon/internal/genre"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(&Config{URL: server.URL + "/", Segments: 3, Timeout: 5 * time.Second})
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    genre.Genre
		wantErr error
		anyErr  bool
	}{
		{
			name:   "ok",
			status: http.StatusOK,
			body:   `{"genre": "metal", "confidence": 0.6, "probabilities": {"metal": 0.6, "rock": 0.4}, "duration": 201.5}`,
			want:   genre.Metal,
		},
		{
			name:    "unknown genre",
			status:  http.StatusOK,
			body:    `{"genre": "polka", "confidence": 1}`,
			wantErr: ErrInvalidPrediction,
		},
		{
			name:    "undecodable audio",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail": "could not decode mp3"}`,
			wantErr: ErrUnprocessable,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `boom`,
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/predict" {
					t.Errorf("path = %q", r.URL.Path)
				}
				if got := r.FormValue("segments"); got != "3" {
					t.Errorf("segments = %q, want 3", got)
				}
				file, header, err := r.FormFile("file")
				if err != nil {
					t.Errorf("FormFile() error = %v", err)
				} else {
					data, _ := io.ReadAll(file)
					file.Close()
					if header.Filename != "a.mp3" || string(data) != "audio" {
						t.Errorf("file = %q %q", header.Filename, data)
					}
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			p, err := client.Predict(context.Background(), "a.mp3", strings.NewReader("audio"))

			if tt.anyErr {
				if err == nil {
					t.Fatal("Predict() error = nil, want error")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Predict() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if p.Genre != tt.want || p.Probabilities[genre.Rock] != 0.4 {
				t.Errorf("Predict() = %+v", p)
			}
			if p.Duration == nil || *p.Duration != 201.5 {
				t.Errorf("Duration = %v, want 201.5", p.Duration)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "ok", "model_loaded": true}`)
	})

	s, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if !s.ModelLoaded {
		t.Errorf("Health() = %+v", s)
	}
}
