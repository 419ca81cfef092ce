package services

import (
	"context"
	"io"
)

// ExportProject carries the project fields the workbook needs
type ExportProject struct {
	Title string `json:"title"`
}

// ExportScene carries the narrative fields of one scene.
// DurationSeconds is kept loose because clients send numbers or strings.
type ExportScene struct {
	ShotNumber      *string     `json:"shot_number"`
	ShotType        *string     `json:"shot_type"`
	DurationSeconds interface{} `json:"duration_seconds"`
	Frame           *string     `json:"frame"`
	Content         *string     `json:"content"`
	Notes           *string     `json:"notes"`
	ImageURL        *string     `json:"image_url"`
}

// ExportRequest is the body of an export call
type ExportRequest struct {
	Project *ExportProject `json:"project"`
	Scenes  []ExportScene  `json:"scenes"`
}

// ExportService renders a storyboard workbook
type ExportService interface {
	// Filename returns the attachment filename for a project title
	Filename(title string) string

	// WriteWorkbook renders the workbook to w
	WriteWorkbook(ctx context.Context, req *ExportRequest, w io.Writer) error
}

// ExportArchive stores a copy of each generated workbook
type ExportArchive interface {
	// Store uploads the workbook and returns a time-limited download URL
	Store(ctx context.Context, userID, filename string, data []byte) (string, error)
}
