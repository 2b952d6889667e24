package asset

import (
	"time"

	"github.com/google/uuid"
)

// Asset is an uploaded binary referenced from a CRDT payload — typically an
// image element's url/thumbnail_url fields. Grounded on the teacher's
// internal/models/asset.go, with WorkspaceID dropped: uploads in this
// system aren't scoped to a room at upload time (spec.md's storage model
// never ties a LiveObject field to a fixed owning room; a client uploads
// first, then assigns the returned URL to whatever room's payload it likes).
type Asset struct {
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	ThumbnailURL *string    `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	Width        *int       `json:"width,omitempty" db:"width"`
	Height       *int       `json:"height,omitempty" db:"height"`
	Filename     string     `json:"filename" db:"filename"`
	ContentType  string     `json:"content_type" db:"content_type"`
	URL          string     `json:"url" db:"url"`
	Size         int64      `json:"size" db:"size"`
	ID           uuid.UUID  `json:"id" db:"id"`
	UploadedBy   uuid.UUID  `json:"uploaded_by" db:"uploaded_by"`
}

// Response is the wire shape returned by POST /api/v1/assets.
type Response struct {
	CreatedAt    time.Time `json:"created_at"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ID           uuid.UUID `json:"id"`
}

// ToResponse converts an Asset to its API response shape.
func (a *Asset) ToResponse() Response {
	return Response{
		ID:           a.ID,
		Filename:     a.Filename,
		ContentType:  a.ContentType,
		Size:         a.Size,
		URL:          a.URL,
		ThumbnailURL: a.ThumbnailURL,
		Width:        a.Width,
		Height:       a.Height,
		CreatedAt:    a.CreatedAt,
	}
}
