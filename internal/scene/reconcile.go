package scene

import (
	"slices"

	"github.com/justestif/go-genre-decagon/internal/layout"
	"github.com/justestif/go-genre-decagon/internal/model"
)

// Diff is the change needed to bring the surface's markers in line with a
// collection and selection.
type Diff struct {
	Enter  []MarkerSpec
	Update []MarkerSpec
	Exit   []int64
	Order  []int64 // draw order, bottom to top
}

// Empty reports whether the diff changes no marker.
func (d Diff) Empty() bool {
	return len(d.Enter) == 0 && len(d.Update) == 0 && len(d.Exit) == 0
}

// Reconcile compares the prior marker specs against the collection and the
// selection. It has no side effects.
func Reconcile(l layout.Layout, prior map[int64]MarkerSpec, songs []model.Song, selected int64, hasSelection bool) Diff {
	var d Diff
	d.Order = make([]int64, 0, len(songs))

	seen := make(map[int64]struct{}, len(songs))
	for _, song := range songs {
		if _, dup := seen[song.ID]; dup {
			continue
		}
		seen[song.ID] = struct{}{}
		d.Order = append(d.Order, song.ID)

		spec := specFor(l, song, hasSelection && song.ID == selected)
		old, ok := prior[song.ID]
		switch {
		case !ok:
			d.Enter = append(d.Enter, spec)
		case old != spec:
			d.Update = append(d.Update, spec)
		}
	}

	for id := range prior {
		if _, ok := seen[id]; !ok {
			d.Exit = append(d.Exit, id)
		}
	}
	slices.Sort(d.Exit)
	return d
}

func specFor(l layout.Layout, song model.Song, selected bool) MarkerSpec {
	return MarkerSpec{
		SongID:     song.ID,
		Title:      song.Title,
		Genre:      song.PredictedGenre,
		Confidence: song.Confidence,
		Center:     l.Project(song.Position),
		Radius:     MarkerRadius(song.Confidence),
		Fill:       song.PredictedGenre.Color(),
		Style:      SelectionStyle(selected),
	}
}
