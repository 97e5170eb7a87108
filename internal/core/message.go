package core

import (
	"errors"
	"strings"
)

var ErrEmptySender = errors.New("message sender is required")

// InboundMessage is one user message received from the chat channel.
// Source tells the router which fields are meaningful: Text for text
// messages, MediaID and MimeType for audio.
type InboundMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Source   Source `json:"source"`
	Text     string `json:"text,omitempty"`
	MediaID  string `json:"media_id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// Validate checks the message can be routed.
func (m InboundMessage) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return ErrEmptySender
	}
	if !m.Source.IsValid() {
		return ErrInvalidSource
	}
	return nil
}
