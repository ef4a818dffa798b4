package domain

import "time"

// MediaType is the kind of media a favourite points at
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Valid reports whether t is a known media type
func (t MediaType) Valid() bool {
	return t == MediaTypeImage || t == MediaTypeVideo
}

// Favourite is a user's saved reference to an item from the media provider.
// MediaID is unique per user, not globally.
type Favourite struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	MediaID   int64     `json:"media_id" db:"media_id"`
	MediaURL  string    `json:"media_url" db:"media_url"`
	MediaType MediaType `json:"media_type" db:"media_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FavouriteCount is one row of the global popularity ranking
type FavouriteCount struct {
	MediaID  int64  `json:"mediaId" db:"media_id"`
	MediaURL string `json:"mediaUrl" db:"media_url"`
	Count    int64  `json:"count" db:"count"`
}
