// Package store holds a session's song collection, selection and status flags,
// and notifies subscribers synchronously on every change.
package store

import (
	"errors"
	"slices"

	"github.com/justestif/go-genre-decagon/internal/model"
)

// Common errors.
var (
	// ErrDuplicateSong is returned by Add when a song with the same id is already present.
	ErrDuplicateSong = errors.New("song already in collection")

	// ErrUnknownSong is returned by Select when the song is not in the collection.
	ErrUnknownSong = errors.New("song not in collection")
)

// ChangeKind names the mutation that produced a Change.
type ChangeKind int

const (
	ChangeInitialized ChangeKind = iota
	ChangeAdded
	ChangeRemoved
	ChangeSelected
	ChangeError
	ChangeLoading
	ChangeUpload
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInitialized:
		return "initialized"
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeSelected:
		return "selected"
	case ChangeError:
		return "error"
	case ChangeLoading:
		return "loading"
	case ChangeUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Change describes one committed mutation.
type Change struct {
	Kind    ChangeKind
	Version uint64 // store version after the mutation

	// Structural is set when collection membership changed. Subscribers that
	// draw the collection must reconcile on every structural change.
	Structural bool

	// SongID is the song added, removed or selected (0 for a cleared selection).
	SongID int64

	// SelectionChanged is set whenever the selection differs from before,
	// including the implicit clear performed by Remove.
	SelectionChanged bool
}

// Listener receives changes. It runs synchronously inside the mutating call.
type Listener func(Change)

// UploadStatus is the lifecycle stage of an upload.
type UploadStatus string

const (
	UploadUploading  UploadStatus = "uploading"
	UploadProcessing UploadStatus = "processing"
	UploadComplete   UploadStatus = "complete"
	UploadError      UploadStatus = "error"
)

// UploadProgress is the single in-flight upload shown to the user.
type UploadProgress struct {
	FileName string
	Progress float64 // 0..1
	Status   UploadStatus
	Error    string
}

// State is a point-in-time copy of the store.
type State struct {
	Songs    []model.Song
	Selected *model.Song
	Loading  bool
	Loaded   bool // a snapshot has been applied at least once
	Error    string
	Upload   *UploadProgress

	Version           uint64
	CollectionVersion uint64
}

type subscription struct {
	id int
	fn Listener
}

// Store is the collection store for one session.
//
// A Store is not safe for concurrent use. Confine it to a Loop.
type Store struct {
	songs    []model.Song
	ids      map[int64]struct{}
	selected int64
	hasSel   bool

	loading bool
	loaded  bool
	errMsg  string
	upload  *UploadProgress

	version           uint64
	collectionVersion uint64

	subs   []subscription
	nextID int

	pending    []Change
	delivering bool
}

// New creates an empty store.
func New() *Store {
	return &Store{ids: make(map[int64]struct{})}
}

// Subscribe registers fn and returns a function that removes it.
// Listeners are called in subscription order.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

// Initialize replaces the collection with the snapshot and clears the
// selection. A nil snapshot is ignored; the caller reports the failure.
// Songs repeating an earlier id in the snapshot are dropped.
func (s *Store) Initialize(snapshot *model.Snapshot) {
	if snapshot == nil {
		return
	}

	songs := make([]model.Song, 0, len(snapshot.Songs))
	ids := make(map[int64]struct{}, len(snapshot.Songs))
	for _, song := range snapshot.Songs {
		if _, dup := ids[song.ID]; dup {
			continue
		}
		ids[song.ID] = struct{}{}
		songs = append(songs, song)
	}

	hadSelection := s.hasSel
	s.songs = songs
	s.ids = ids
	s.selected, s.hasSel = 0, false
	s.loaded = true

	s.commit(Change{
		Kind:             ChangeInitialized,
		Structural:       true,
		SelectionChanged: hadSelection,
	})
}

// Add prepends song to the collection.
func (s *Store) Add(song model.Song) error {
	if _, dup := s.ids[song.ID]; dup {
		return ErrDuplicateSong
	}

	s.songs = slices.Insert(s.songs, 0, song)
	s.ids[song.ID] = struct{}{}

	s.commit(Change{Kind: ChangeAdded, Structural: true, SongID: song.ID})
	return nil
}

// Remove deletes the song with the given id and, if it was selected, clears
// the selection in the same change. It reports whether a song was removed.
func (s *Store) Remove(id int64) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}

	s.songs = slices.DeleteFunc(s.songs, func(song model.Song) bool {
		return song.ID == id
	})
	delete(s.ids, id)

	cleared := s.hasSel && s.selected == id
	if cleared {
		s.selected, s.hasSel = 0, false
	}

	s.commit(Change{Kind: ChangeRemoved, Structural: true, SongID: id, SelectionChanged: cleared})
	return true
}

// Select sets the selection. A nil song clears it.
func (s *Store) Select(song *model.Song) error {
	if song == nil {
		if !s.hasSel {
			return nil
		}
		s.selected, s.hasSel = 0, false
		s.commit(Change{Kind: ChangeSelected, SelectionChanged: true})
		return nil
	}

	if _, ok := s.ids[song.ID]; !ok {
		return ErrUnknownSong
	}
	if s.hasSel && s.selected == song.ID {
		return nil
	}
	s.selected, s.hasSel = song.ID, true
	s.commit(Change{Kind: ChangeSelected, SongID: song.ID, SelectionChanged: true})
	return nil
}

// SelectID selects the song with the given id.
func (s *Store) SelectID(id int64) error {
	song, ok := s.Song(id)
	if !ok {
		return ErrUnknownSong
	}
	return s.Select(&song)
}

// SetError replaces the error message. An empty message clears it.
func (s *Store) SetError(msg string) {
	s.errMsg = msg
	s.commit(Change{Kind: ChangeError})
}

// ClearError removes the error message.
func (s *Store) ClearError() {
	s.SetError("")
}

// SetLoading sets the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.loading = loading
	s.commit(Change{Kind: ChangeLoading})
}

// SetUploadProgress replaces the upload progress. Nil clears it.
func (s *Store) SetUploadProgress(p *UploadProgress) {
	if p != nil {
		cp := *p
		p = &cp
	}
	s.upload = p
	s.commit(Change{Kind: ChangeUpload})
}

// Songs returns a copy of the collection, newest first.
func (s *Store) Songs() []model.Song {
	return slices.Clone(s.songs)
}

// Len returns the number of songs in the collection.
func (s *Store) Len() int {
	return len(s.songs)
}

// Song looks up a song by id.
func (s *Store) Song(id int64) (model.Song, bool) {
	if _, ok := s.ids[id]; !ok {
		return model.Song{}, false
	}
	i := slices.IndexFunc(s.songs, func(song model.Song) bool { return song.ID == id })
	return s.songs[i], true
}

// Selected returns the selected song, or nil.
func (s *Store) Selected() *model.Song {
	if !s.hasSel {
		return nil
	}
	song, ok := s.Song(s.selected)
	if !ok {
		return nil
	}
	return &song
}

// SelectedID returns the selected song id and whether there is a selection.
func (s *Store) SelectedID() (int64, bool) {
	return s.selected, s.hasSel
}

// Version returns the number of committed changes.
func (s *Store) Version() uint64 {
	return s.version
}

// CollectionVersion returns the number of committed structural changes.
func (s *Store) CollectionVersion() uint64 {
	return s.collectionVersion
}

// State returns a copy of the whole store.
func (s *Store) State() State {
	st := State{
		Songs:             s.Songs(),
		Selected:          s.Selected(),
		Loading:           s.loading,
		Loaded:            s.loaded,
		Error:             s.errMsg,
		Version:           s.version,
		CollectionVersion: s.collectionVersion,
	}
	if s.upload != nil {
		up := *s.upload
		st.Upload = &up
	}
	return st
}

// commit stamps the change and delivers it. Changes committed by a listener
// are queued until the current delivery finishes so that every listener
// observes changes in commit order.
func (s *Store) commit(c Change) {
	s.version++
	if c.Structural {
		s.collectionVersion++
	}
	c.Version = s.version

	s.pending = append(s.pending, c)
	if s.delivering {
		return
	}

	s.delivering = true
	defer func() { s.delivering = false }()

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		for _, sub := range slices.Clone(s.subs) {
			sub.fn(next)
		}
	}
}
