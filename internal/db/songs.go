package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const songColumns = `id, title, source, source_url, duration, predicted_genre, confidence,
	probabilities, cluster_x, cluster_y, created_at`

// SongRepository handles song database operations.
type SongRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a song and fills in its ID and CreatedAt.
func (r *SongRepository) Create(ctx context.Context, song *Song) error {
	query := `
		INSERT INTO songs (title, source, source_url, duration, predicted_genre, confidence,
			probabilities, cluster_x, cluster_y)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		song.Title,
		song.Source,
		song.SourceURL,
		song.Duration,
		song.PredictedGenre,
		song.Confidence,
		song.Probabilities,
		song.ClusterX,
		song.ClusterY,
	).Scan(&song.ID, &song.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting song: %w", err)
	}
	return nil
}

// Get retrieves a song by ID.
func (r *SongRepository) Get(ctx context.Context, id int64) (*Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = $1`

	song, err := scanSong(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return song, nil
}

// List retrieves a page of songs, newest first, and the number of songs
// matching the filter.
func (r *SongRepository) List(ctx context.Context, opts ListOptions) ([]Song, int, error) {
	countQuery, countArgs := countQuery(opts)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting songs: %w", err)
	}

	query, args := listQuery(opts)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, *song)
	}
	return songs, total, rows.Err()
}

// Delete removes a song. Returns ErrNotFound if no such song exists.
func (r *SongRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting song: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSong(row pgx.Row) (*Song, error) {
	var s Song
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Source,
		&s.SourceURL,
		&s.Duration,
		&s.PredictedGenre,
		&s.Confidence,
		&s.Probabilities,
		&s.ClusterX,
		&s.ClusterY,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func whereClause(opts ListOptions) (string, []any) {
	if opts.Genre == "" {
		return "", nil
	}
	return " WHERE predicted_genre = $1", []any{opts.Genre}
}

func countQuery(opts ListOptions) (string, []any) {
	where, args := whereClause(opts)
	return `SELECT COUNT(*) FROM songs` + where, args
}

func listQuery(opts ListOptions) (string, []any) {
	where, args := whereClause(opts)

	var b strings.Builder
	b.WriteString(`SELECT ` + songColumns + ` FROM songs`)
	b.WriteString(where)
	b.WriteString(` ORDER BY created_at DESC, id DESC`)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		b.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		b.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}
	return b.String(), args
}
