package models

import "time"

// Video represents one downloadable VOD asset. Rows are owned by the
// ingest service; this worker only reads them and advances their status.
type Video struct {
	ID        int64     `json:"id" db:"id"`
	TwitchID  string    `json:"twitch_id" db:"twitch_id"`
	Title     string    `json:"title" db:"title"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
