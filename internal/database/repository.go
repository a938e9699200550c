package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/streamvault/vodfetch/pkg/models"
)

// ErrVideoNotFound is returned when a lookup matches no video row.
var ErrVideoNotFound = errors.New("video not found")

// Repository provides database operations on videos
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

const videoColumns = `id, twitch_id, title, status, created_at, updated_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID, &video.TwitchID, &video.Title,
		&video.Status, &video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// GetByTwitchID retrieves a video by its platform identity
func (r *Repository) GetByTwitchID(ctx context.Context, twitchID string) (*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE twitch_id = $1
	`

	video, err := scanVideo(r.db.Pool.QueryRow(ctx, query, twitchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, twitchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// ListByStatus retrieves up to limit videos in the given status, oldest first.
// The ordering makes batch runs drain the backlog in creation order.
func (r *Repository) ListByStatus(ctx context.Context, status models.Status, limit int) ([]*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}

	return videos, nil
}

// CountInFlight counts videos occupying local disk: downloaded or being
// moved by either the download or the upload stage.
func (r *Repository) CountInFlight(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM videos
		WHERE status = ANY($1)
	`

	statuses := models.InFlightStatuses()
	args := make([]string, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, s.String())
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, args).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count in-flight videos: %w", err)
	}

	return count, nil
}

// UpdateStatus transitions a video to the given status
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status models.Status) error {
	query := `
		UPDATE videos
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrVideoNotFound, id)
	}

	return nil
}
