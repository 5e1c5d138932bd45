package models

import "time"

// ReadHistoryEntry is one recently viewed post. Entries live in Redis, not SQL.
type ReadHistoryEntry struct {
	PostID        uint      `json:"post_id"`
	Title         string    `json:"title"`
	ReadAt        time.Time `json:"read_at"`
	PostTimestamp time.Time `json:"post_timestamp"`
}
