package models

import "time"

// DefaultProjectImageSize is the column default for new projects.
// It is a project preference and not one of the sizes the image generator accepts.
const DefaultProjectImageSize = "1328*1328"

type Project struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	ImageSize   string     `json:"image_size" db:"image_size"`
	IsDeleted   bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
