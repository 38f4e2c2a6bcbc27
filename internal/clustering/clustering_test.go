package clustering

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func makeSong(id int64, probs model.Probabilities) model.Song {
	top := genre.Blues
	for _, g := range genre.All {
		if probs[g] > probs[top] {
			top = g
		}
	}
	return model.Song{
		ID:             id,
		Title:          fmt.Sprintf("song %d", id),
		PredictedGenre: top,
		Confidence:     probs[top],
		Probabilities:  probs,
		CreatedAt:      model.Timestamp{Time: baseTime.Add(time.Duration(id) * time.Hour)},
	}
}

func TestDetect(t *testing.T) {
	rock := model.Probabilities{genre.Rock: 0.6, genre.Metal: 0.4}
	jazz := model.Probabilities{genre.Jazz: 0.9, genre.Blues: 0.1}

	tests := []struct {
		name         string
		songs        []model.Song
		cfg          Config
		wantGroups   int
		wantOutliers int
	}{
		{
			name:         "empty input",
			songs:        nil,
			cfg:          DefaultConfig(),
			wantGroups:   0,
			wantOutliers: 0,
		},
		{
			name:         "fewer songs than clusters",
			songs:        []model.Song{makeSong(1, rock), makeSong(2, jazz)},
			cfg:          DefaultConfig(),
			wantGroups:   0,
			wantOutliers: 2,
		},
		{
			name: "single cluster",
			songs: []model.Song{
				makeSong(1, rock), makeSong(2, rock), makeSong(3, jazz),
			},
			cfg:          Config{NumClusters: 1, MinClusterSize: 2},
			wantGroups:   1,
			wantOutliers: 0,
		},
		{
			name: "two well separated clusters",
			songs: []model.Song{
				makeSong(1, rock), makeSong(2, jazz), makeSong(3, rock),
				makeSong(4, jazz), makeSong(5, rock), makeSong(6, jazz),
			},
			cfg:          Config{NumClusters: 2, MinClusterSize: 2},
			wantGroups:   2,
			wantOutliers: 0,
		},
		{
			name: "small cluster becomes outliers",
			songs: []model.Song{
				makeSong(1, rock), makeSong(2, rock), makeSong(3, rock), makeSong(4, jazz),
			},
			cfg:          Config{NumClusters: 2, MinClusterSize: 2},
			wantGroups:   1,
			wantOutliers: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, outliers := Detect(tt.songs, tt.cfg)

			if len(groups) != tt.wantGroups {
				t.Errorf("got %d groups, want %d", len(groups), tt.wantGroups)
			}
			if len(outliers) != tt.wantOutliers {
				t.Errorf("got %d outliers, want %d", len(outliers), tt.wantOutliers)
			}

			total := len(outliers)
			for _, g := range groups {
				total += len(g.Songs)
			}
			if total != len(tt.songs) {
				t.Errorf("groups and outliers hold %d songs, want %d", total, len(tt.songs))
			}
		})
	}
}

func TestDetectNamesGroups(t *testing.T) {
	rock := model.Probabilities{genre.Rock: 0.6, genre.Metal: 0.4}
	jazz := model.Probabilities{genre.Jazz: 0.9, genre.Blues: 0.1}
	songs := []model.Song{
		makeSong(1, rock), makeSong(2, jazz), makeSong(3, rock),
		makeSong(4, jazz), makeSong(5, rock),
	}

	groups, _ := Detect(songs, Config{NumClusters: 2, MinClusterSize: 1})
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	// Larger group first.
	if groups[0].Name != "Rock & Metal" || len(groups[0].Songs) != 3 {
		t.Errorf("groups[0] = %q with %d songs", groups[0].Name, len(groups[0].Songs))
	}
	if groups[1].Name != "Mostly Jazz" {
		t.Errorf("groups[1].Name = %q, want Mostly Jazz", groups[1].Name)
	}

	var ids []int64
	for _, s := range groups[0].Songs {
		ids = append(ids, s.ID)
	}
	if !slices.Equal(ids, []int64{5, 3, 1}) {
		t.Errorf("group songs = %v, want newest first [5 3 1]", ids)
	}
}

func TestVector(t *testing.T) {
	v := Vector(model.Probabilities{genre.Blues: 0.3, genre.Rock: 0.7})
	if len(v) != genre.Count {
		t.Fatalf("len = %d, want %d", len(v), genre.Count)
	}
	if v[0] != 0.3 || v[genre.Count-1] != 0.7 || v[5] != 0 {
		t.Errorf("Vector() = %v", v)
	}
}
