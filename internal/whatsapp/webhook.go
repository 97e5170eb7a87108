package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"autonomos/internal/core"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// SignatureHeader carries the HMAC-SHA256 of the raw body keyed by the app secret.
const SignatureHeader = "X-Hub-Signature-256"

// WebhookPayload is the notification body posted by the Cloud API.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Messages         []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
	Audio     *Media `json:"audio,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Voice    bool   `json:"voice"`
}

// ParseWebhook decodes a notification body.
func ParseWebhook(body []byte) (WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookPayload{}, fmt.Errorf("decode webhook: %w", err)
	}
	return p, nil
}

// InboundMessages returns the text and audio messages of every entry and
// change in the payload. Other message types and status updates are skipped.
func (p WebhookPayload) InboundMessages() []core.InboundMessage {
	var out []core.InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if msg, ok := m.inbound(); ok {
					out = append(out, msg)
				}
			}
		}
	}
	return out
}

func (m Message) inbound() (core.InboundMessage, bool) {
	msg := core.InboundMessage{ID: m.ID, From: m.From}
	switch {
	case m.Type == "text" && m.Text != nil:
		msg.Source = core.SourceText
		msg.Text = m.Text.Body
	case m.Type == "audio" && m.Audio != nil:
		msg.Source = core.SourceAudio
		msg.MediaID = m.Audio.ID
		msg.MimeType = m.Audio.MimeType
	default:
		return core.InboundMessage{}, false
	}
	return msg, true
}

// VerifySubscription answers the GET handshake. It returns the challenge to
// echo when the mode is "subscribe" and the token matches.
func VerifySubscription(query url.Values, verifyToken string) (string, bool) {
	if verifyToken == "" || query.Get("hub.mode") != "subscribe" {
		return "", false
	}
	if !hmac.Equal([]byte(query.Get("hub.verify_token")), []byte(verifyToken)) {
		return "", false
	}
	return query.Get("hub.challenge"), true
}

// VerifySignature checks header against the HMAC-SHA256 of body.
func VerifySignature(appSecret string, body []byte, header string) error {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, Sign(appSecret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(appSecret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return mac.Sum(nil)
}
