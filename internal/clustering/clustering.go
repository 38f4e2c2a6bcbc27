// Package clustering groups songs with similar genre distributions using
// k-means over their probability vectors.
package clustering

import (
	"cmp"
	"log"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
)

// Config holds clustering parameters.
type Config struct {
	NumClusters    int // Number of clusters to create (default: 3)
	MinClusterSize int // Minimum songs per group (smaller clusters become outliers)
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumClusters:    3,
		MinClusterSize: 2,
	}
}

// Group is a cluster of songs that sound alike to the classifier.
type Group struct {
	Name     string              // "Rock & Metal", "Mostly Jazz", "Mixed"
	Songs    []model.Song        // newest first
	Centroid model.Probabilities // mean probability per genre
	Dominant []genre.Genre       // genres that name the group, strongest first
}

// songObservation wraps a Song to implement clusters.Observation.
type songObservation struct {
	song   *model.Song
	coords clusters.Coordinates
}

func (o songObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o songObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// Detect partitions songs into groups. Songs in clusters smaller than
// cfg.MinClusterSize are returned as outliers. With fewer songs than
// clusters, every song is an outlier.
func Detect(songs []model.Song, cfg Config) ([]Group, []model.Song) {
	if len(songs) == 0 {
		return nil, nil
	}
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}
	if len(songs) < cfg.NumClusters {
		return nil, slices.Clone(songs)
	}

	var obs clusters.Observations
	for i := range songs {
		obs = append(obs, songObservation{song: &songs[i], coords: Vector(songs[i].Probabilities)})
	}

	result, err := kmeans.New().Partition(obs, cfg.NumClusters)
	if err != nil {
		log.Printf("clustering: k-means failed: %v", err)
		return nil, slices.Clone(songs)
	}

	var groups []Group
	var outliers []model.Song
	for _, cluster := range result {
		var members []model.Song
		for _, o := range cluster.Observations {
			if so, ok := o.(songObservation); ok {
				members = append(members, *so.song)
			}
		}
		if len(members) == 0 {
			continue
		}
		if len(members) < cfg.MinClusterSize {
			outliers = append(outliers, members...)
			continue
		}

		slices.SortFunc(members, newestFirst)
		centroid := make(model.Probabilities, genre.Count)
		for i, g := range genre.All {
			centroid[g] = cluster.Center[i]
		}
		dominant := DominantGenres(centroid)
		groups = append(groups, Group{
			Name:     GroupName(dominant),
			Songs:    members,
			Centroid: centroid,
			Dominant: dominant,
		})
	}

	slices.SortFunc(groups, func(a, b Group) int {
		if c := cmp.Compare(len(b.Songs), len(a.Songs)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	slices.SortFunc(outliers, newestFirst)

	return groups, outliers
}

// Vector returns probs as coordinates in registry order. Missing genres
// are zero.
func Vector(probs model.Probabilities) clusters.Coordinates {
	v := make(clusters.Coordinates, genre.Count)
	for i, g := range genre.All {
		v[i] = probs[g]
	}
	return v
}

func newestFirst(a, b model.Song) int {
	if c := b.CreatedAt.Compare(a.CreatedAt.Time); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}
