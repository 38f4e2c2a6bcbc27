package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-genre-decagon/internal/catalog"
	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/store"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to disk.
const multipartMemory = 32 << 20

// Catalog is a backend that also serves listings. It is implemented by
// catalog.Service.
type Catalog interface {
	Backend
	List(ctx context.Context, opts catalog.ListOptions) (*model.SongList, error)
	Song(ctx context.Context, id int64) (*model.Song, error)
}

// API serves the collection as JSON under /api.
type API struct {
	catalog  Catalog
	maxBytes int64
}

// NewAPI creates the JSON API over c.
func NewAPI(c Catalog, maxUploadBytes int64) *API {
	return &API{catalog: c, maxBytes: maxUploadBytes}
}

// Routes returns the API router.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", a.Health)
	r.Get("/cluster-data", a.ClusterData)
	r.Get("/songs", a.ListSongs)
	r.Get("/songs/{id}", a.GetSong)
	r.Delete("/songs/{id}", a.DeleteSong)
	r.Post("/upload/mp3", a.UploadFile)
	r.Post("/upload/youtube", a.UploadURL)
	return r
}

// Health handles GET /api/health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	h, err := a.catalog.Health(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// ClusterData handles GET /api/cluster-data.
func (a *API) ClusterData(w http.ResponseWriter, r *http.Request) {
	snap, err := a.catalog.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListSongs handles GET /api/songs?limit=&offset=&genre=.
func (a *API) ListSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := catalog.ListOptions{Genre: q.Get("genre")}

	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	list, err := a.catalog.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSong handles GET /api/songs/{id}.
func (a *API) GetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := songID(w, r)
	if !ok {
		return
	}
	song, err := a.catalog.Song(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// DeleteSong handles DELETE /api/songs/{id}.
func (a *API) DeleteSong(w http.ResponseWriter, r *http.Request) {
	id, ok := songID(w, r)
	if !ok {
		return
	}
	if err := a.catalog.DeleteSong(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Song deleted successfully",
	})
}

// UploadFile handles POST /api/upload/mp3 with a multipart "file" field.
func (a *API) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBytes+uploadOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > a.maxBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	song, err := a.catalog.UploadFile(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// UploadURL handles POST /api/upload/youtube with a {"url": ...} body.
func (a *API) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "url is required")
		return
	}

	song, err := a.catalog.UploadURL(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func songID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeDetail(w, http.StatusBadRequest, "Invalid song id")
		return 0, false
	}
	return id, true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// writeError writes err as {"detail": ...} with the status it carries.
func writeError(w http.ResponseWriter, err error) {
	status := catalog.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("api: %v", err)
	}
	writeDetail(w, status, store.ErrorMessage(err, http.StatusText(status)))
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
