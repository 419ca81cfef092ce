package models

import "time"

// Scene is one ordered storyboard unit.
// OrderIndex is a sort key: gaps and duplicates are allowed.
type Scene struct {
	ID              string    `json:"id" db:"id"`
	ProjectID       string    `json:"project_id" db:"project_id"`
	OrderIndex      int       `json:"order_index" db:"order_index"`
	Content         string    `json:"content" db:"content"`
	ImageURL        *string   `json:"image_url" db:"image_url"`
	AINotes         *string   `json:"ai_notes" db:"ai_notes"`
	ShotNumber      *string   `json:"shot_number" db:"shot_number"`
	Frame           *string   `json:"frame" db:"frame"`
	ShotType        *string   `json:"shot_type" db:"shot_type"`
	DurationSeconds *int      `json:"duration_seconds" db:"duration_seconds"`
	Notes           *string   `json:"notes" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// HasImage reports whether an image is attached.
func (s *Scene) HasImage() bool {
	return s.ImageURL != nil && *s.ImageURL != ""
}

// SceneUpdate is a partial update. Nil fields are left untouched.
// Clearing a nullable column is expressed by pointing at an empty value.
type SceneUpdate struct {
	Content         *string `json:"content,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	AINotes         *string `json:"ai_notes,omitempty"`
	OrderIndex      *int    `json:"order_index,omitempty"`
	ShotNumber      *string `json:"shot_number,omitempty"`
	Frame           *string `json:"frame,omitempty"`
	ShotType        *string `json:"shot_type,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// IsEmpty reports whether the update carries no field at all.
func (u *SceneUpdate) IsEmpty() bool {
	return u.Content == nil && u.ImageURL == nil && u.AINotes == nil &&
		u.OrderIndex == nil && u.ShotNumber == nil && u.Frame == nil &&
		u.ShotType == nil && u.DurationSeconds == nil && u.Notes == nil
}
