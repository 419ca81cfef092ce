package config

import "time"

const (
	// MaxProjectTitleLength is the maximum length for project titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxProjectTitleLength = 255

	// MaxProjectDescriptionLength caps the free-text project description.
	MaxProjectDescriptionLength = 2000

	// MaxImagePromptLength is the longest prompt accepted by generateImage.
	MaxImagePromptLength = 2000

	// MinPasswordLength is the shortest password accepted at signup.
	MinPasswordLength = 6

	// MaxEmailLength matches the users.email column.
	MaxEmailLength = 255

	// MaxChatSteps bounds the tool loop of a single chat turn.
	MaxChatSteps = 20

	// MaxChatRetries is how often a failed provider call is retried.
	MaxChatRetries = 2

	// ChatTemperature is the sampling temperature for chat turns.
	ChatTemperature = 0.7

	// ChatKeepAliveInterval is how often an idle chat stream is pinged.
	ChatKeepAliveInterval = 10 * time.Second

	// SessionTTL is the lifetime of a session cookie.
	SessionTTL = 7 * 24 * time.Hour

	// SessionRefreshWindow re-issues a session when less than this is left.
	SessionRefreshWindow = 24 * time.Hour
)
