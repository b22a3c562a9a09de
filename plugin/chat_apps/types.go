// Package chat_apps holds the platform-neutral types used by chat channels.
package chat_apps

// Platform represents a supported chat platform.
type Platform string

const (
	PlatformSlack Platform = "slack"
)

// IsValid checks if the platform is valid.
func (p Platform) IsValid() bool {
	return p == PlatformSlack
}

// OutgoingMessage represents a message to post into a chat thread.
type OutgoingMessage struct {
	ChannelID string // Destination channel
	ThreadID  string // Thread to reply into
	Content   string // Formatted text
}

// PostResult is the platform acknowledgement of a posted message.
type PostResult struct {
	OK bool   `json:"ok"`
	TS string `json:"ts"`
}
