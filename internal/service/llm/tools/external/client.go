package external

import (
	"context"
	"errors"
	"fmt"
)

// ImageGenerator defines the interface for text-to-image providers.
type ImageGenerator interface {
	// Generate creates one image and returns a URL where it can be downloaded.
	// Blocks until the provider finishes, fails, times out or ctx is cancelled.
	Generate(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// ImageRequest configures one generation.
type ImageRequest struct {
	Prompt string
	Size   string // "<width>*<height>"
}

// ImageResult is a finished generation.
type ImageResult struct {
	URL    string
	TaskID string
	Prompt string
}

// ErrTaskTimeout is returned when polling runs out of attempts.
var ErrTaskTimeout = errors.New("image generation timed out, please try again")

// TaskFailedError is a generation the provider reported as FAILED.
type TaskFailedError struct {
	TaskID string
	Reason string
}

func (e *TaskFailedError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown error"
	}
	return fmt.Sprintf("image generation failed: %s", reason)
}
