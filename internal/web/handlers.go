package web

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/justestif/go-genre-decagon/internal/clustering"
	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/panel"
	"github.com/justestif/go-genre-decagon/internal/scene"
	"github.com/justestif/go-genre-decagon/internal/upload"
)

// uploadOverhead is the room left for multipart headers above the file limit.
const uploadOverhead = 1 << 20

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	sessions  *SessionStore
	templates *Templates
	groups    clustering.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sessions *SessionStore, templates *Templates, groups clustering.Config) *Handlers {
	return &Handlers{
		sessions:  sessions,
		templates: templates,
		groups:    groups,
	}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Ensure(w, r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Genre Decagon",
			CurrentPath: r.URL.Path,
		},
		Viz: h.vizData(session, ""),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		log.Printf("rendering home: %v", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

// Frame re-renders the visualization (GET /viz).
func (h *Handlers) Frame(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	h.renderViz(w, session, "")
}

// Event applies one pointer gesture to the session's scene (POST /viz/events).
//
// Form fields: type (down, move, up, wheel, pinch, click, enter, leave),
// x and y in surface coordinates, id for enter/leave/click on a marker,
// delta for wheel and factor for pinch.
func (h *Handlers) Event(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}

	ev, err := parseEvent(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var applyErr error
	session.Run(func() {
		applyErr = ev.apply(session.renderer)
	})
	if applyErr != nil {
		// A marker that vanished between frames is not worth an error banner.
		log.Printf("session %s: %s event: %v", session.ID, ev.kind, applyErr)
	}

	h.renderViz(w, session, "")
}

// DeleteSelected deletes the selected song (POST /viz/panel/delete).
func (h *Handlers) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}

	if err := session.panel.Delete(r.Context()); err != nil && !errors.Is(err, panel.ErrNoSelection) {
		log.Printf("session %s: %v", session.ID, err)
	}
	h.renderViz(w, session, "")
}

// DismissPanel clears the selection (POST /viz/panel/dismiss).
func (h *Handlers) DismissPanel(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	session.panel.Dismiss()
	h.renderViz(w, session, "")
}

// ClearError dismisses the error banner (POST /viz/error/clear).
func (h *Handlers) ClearError(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	session.Run(session.store.ClearError)
	h.renderViz(w, session, "")
}

// Reload fetches the collection again and redraws from scratch (POST /viz/reload).
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	if err := session.Load(r.Context()); err == nil {
		session.Run(session.renderer.Rebuild)
	}
	h.renderViz(w, session, "")
}

// UploadFile uploads an mp3 from the form (POST /viz/upload/file).
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}

	maxBytes := session.uploader.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+uploadOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := (&upload.ValidationError{Err: upload.ErrMissingFile, MaxBytes: maxBytes}).Message()
		if errors.As(err, &tooLarge) {
			msg = (&upload.ValidationError{Err: upload.ErrFileTooLarge, MaxBytes: maxBytes}).Message()
		}
		h.renderViz(w, session, msg)
		return
	}
	defer file.Close()

	_, err = session.uploader.UploadFile(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	h.renderViz(w, session, validationMessage(session, err))
}

// UploadURL submits a YouTube link (POST /viz/upload/url).
func (h *Handlers) UploadURL(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}

	_, err := session.uploader.UploadURL(r.Context(), r.FormValue("url"))
	h.renderViz(w, session, validationMessage(session, err))
}

// Health reports the backend's status (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health, err := h.sessions.backend.Health(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, health)
}

// validationMessage returns the local message for an upload error. Backend
// failures are already in the store's error slot and yield "".
func validationMessage(session *Session, err error) string {
	if err == nil {
		return ""
	}
	var verr *upload.ValidationError
	if errors.As(err, &verr) {
		return verr.Message()
	}
	log.Printf("session %s: %v", session.ID, err)
	return ""
}

// session returns the request's session. A missing or expired session gets
// 401 and the page script reloads.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) *Session {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}
	return session
}

func (h *Handlers) renderViz(w http.ResponseWriter, session *Session, uploadErr string) {
	data := h.vizData(session, uploadErr)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.RenderPartial(w, "viz", data); err != nil {
		log.Printf("rendering viz: %v", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

// vizData samples the session inside its loop.
func (h *Handlers) vizData(session *Session, uploadErr string) VizData {
	var data VizData
	session.Run(func() {
		st := session.store.State()
		data = VizData{
			Frame:       session.renderer.Frame(),
			Panel:       session.panel.View(),
			Error:       st.Error,
			Loading:     st.Loading,
			Loaded:      st.Loaded,
			SongCount:   len(st.Songs),
			GenreCount:  genre.Count,
			Upload:      st.Upload,
			UploadError: uploadErr,
			MaxUploadMB: session.uploader.MaxBytes() >> 20,
			Groups:      session.groupsFor(st.CollectionVersion, st.Songs, h.groups),
		}
	})
	return data
}

// event is one decoded pointer gesture.
type event struct {
	kind          string
	x, y          float64
	id            int64
	delta, factor float64
}

func (e event) apply(r *scene.Renderer) error {
	switch e.kind {
	case "down":
		r.PointerDown(e.x, e.y)
	case "move":
		r.PointerMove(e.x, e.y)
	case "up":
		r.PointerUp(e.x, e.y)
	case "wheel":
		r.Wheel(e.x, e.y, e.delta)
	case "pinch":
		r.Pinch(e.x, e.y, e.factor)
	case "click":
		if e.id != 0 {
			return r.ClickMarker(e.id)
		}
		return r.Click(e.x, e.y)
	case "enter":
		r.PointerEnter(e.id)
	case "leave":
		r.PointerLeave(e.id)
	}
	return nil
}

var errBadEvent = errors.New("bad event")

func parseEvent(r *http.Request) (event, error) {
	ev := event{kind: r.FormValue("type")}
	switch ev.kind {
	case "down", "move", "up", "wheel", "pinch", "click", "enter", "leave":
	default:
		return ev, errBadEvent
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"x", &ev.x}, {"y", &ev.y}, {"delta", &ev.delta}, {"factor", &ev.factor},
	}
	for _, f := range fields {
		s := r.FormValue(f.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return ev, errBadEvent
		}
		*f.dst = v
	}

	if s := r.FormValue("id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ev, errBadEvent
		}
		ev.id = id
	}
	if ev.kind == "pinch" && ev.factor <= 0 {
		return ev, errBadEvent
	}
	return ev, nil
}
