// Package web provides the HTTP server and web UI for the genre decagon.
package web

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-genre-decagon/internal/clustering"
	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/panel"
	"github.com/justestif/go-genre-decagon/internal/scene"
	"github.com/justestif/go-genre-decagon/internal/store"
	"github.com/justestif/go-genre-decagon/internal/upload"
)

const (
	sessionCookieName = "session_id"
	sessionTTL        = 24 * time.Hour

	loadFailed = "Failed to load data. Make sure the backend is running."
)

// Backend is the collaborator that owns the song collection.
type Backend interface {
	Snapshot(ctx context.Context) (*model.Snapshot, error)
	UploadFile(ctx context.Context, name string, r io.Reader) (*model.Song, error)
	UploadURL(ctx context.Context, url string) (*model.Song, error)
	DeleteSong(ctx context.Context, id int64) error
	Health(ctx context.Context) (*model.Health, error)
}

// Session is one browser's view of the collection. Every access to its
// store, renderer and panel goes through Run.
type Session struct {
	ID        string
	CreatedAt time.Time

	loop     store.Loop
	store    *store.Store
	renderer *scene.Renderer
	panel    *panel.Panel
	uploader *upload.Uploader
	backend  Backend

	// Genre groups, recomputed when the collection changes.
	groups        []GroupData
	groupsVersion uint64
	groupsValid   bool

	mu       sync.Mutex
	lastSeen time.Time
}

// newSession wires a store to its renderer, panel and uploader.
func newSession(backend Backend, maxUploadBytes int64, opts ...scene.Option) *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastSeen:  now,
		store:     store.New(),
		backend:   backend,
	}
	s.loop.Run(func() {
		s.renderer = scene.New(s.store, opts...)
	})
	s.panel = panel.New(s.store, backend, &s.loop)
	s.uploader = upload.New(s.store, backend, &s.loop, upload.WithMaxBytes(maxUploadBytes))
	return s
}

// Run calls fn inside the session's loop.
func (s *Session) Run(fn func()) {
	s.loop.Run(fn)
}

// Load fetches the snapshot and initializes the store. A failure leaves the
// collection empty and sets the error slot.
func (s *Session) Load(ctx context.Context) error {
	s.loop.Run(func() {
		s.store.SetLoading(true)
	})

	snap, err := s.backend.Snapshot(ctx)

	s.loop.Run(func() {
		if err != nil {
			s.store.SetError(loadFailed)
		} else {
			s.store.Initialize(snap)
		}
		s.store.SetLoading(false)
	})
	if err != nil {
		log.Printf("session %s: loading snapshot: %v", s.ID, err)
	}
	return err
}

// groupsFor returns the genre groups of songs, which are the store's songs
// at collection version v. Call it inside the loop.
func (s *Session) groupsFor(v uint64, songs []model.Song, cfg clustering.Config) []GroupData {
	if s.groupsValid && s.groupsVersion == v {
		return s.groups
	}
	groups, _ := clustering.Detect(songs, cfg)
	s.groups = groupData(groups)
	s.groupsVersion, s.groupsValid = v, true
	return s.groups
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > sessionTTL
}

func (s *Session) close() {
	s.loop.Run(s.renderer.Close)
}

// SessionStore keeps browser sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	backend        Backend
	maxUploadBytes int64
	sceneOpts      []scene.Option
}

// NewSessionStore creates an empty session store. Sessions it creates talk
// to backend.
func NewSessionStore(backend Backend, maxUploadBytes int64, opts ...scene.Option) *SessionStore {
	return &SessionStore{
		sessions:       make(map[string]*Session),
		backend:        backend,
		maxUploadBytes: maxUploadBytes,
		sceneOpts:      opts,
	}
}

// Create starts a new session and loads its collection.
func (s *SessionStore) Create(ctx context.Context) *Session {
	session := newSession(s.backend, s.maxUploadBytes, s.sceneOpts...)
	_ = session.Load(ctx)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get retrieves a live session by ID.
func (s *SessionStore) Get(id string) *Session {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || session.expired(time.Now()) {
		return nil
	}
	session.touch()
	return session
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.close()
	}
}

// Len returns the number of sessions held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops expired sessions.
func (s *SessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	var dead []*Session
	for id, session := range s.sessions {
		if session.expired(now) {
			dead = append(dead, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range dead {
		session.close()
	}
	return len(dead)
}

// GetFromRequest extracts the session from the request cookie.
func (s *SessionStore) GetFromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return nil
	}
	return s.Get(cookie.Value)
}

// Ensure returns the request's session, creating one and setting its
// cookie when there is none.
func (s *SessionStore) Ensure(w http.ResponseWriter, r *http.Request) *Session {
	if session := s.GetFromRequest(r); session != nil {
		return session
	}
	session := s.Create(r.Context())
	setCookie(w, session)
	return session
}

// setCookie sets the session cookie on the response.
func setCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}
