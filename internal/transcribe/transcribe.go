package transcribe

import (
	"context"
	"errors"
	"mime"
	"strings"
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

var ErrEmptyAudio = errors.New("empty audio")

const defaultMIMEType = "audio/ogg"

// baseMIMEType drops parameters such as "; codecs=opus".
func baseMIMEType(mimeType string) string {
	if mimeType == "" {
		return defaultMIMEType
	}
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return defaultMIMEType
	}
	return mt
}

// fileName picks an upload name whose extension matches the audio type.
func fileName(mimeType string) string {
	switch baseMIMEType(mimeType) {
	case "audio/mpeg":
		return "audio.mp3"
	case "audio/mp4", "audio/aac":
		return "audio.m4a"
	case "audio/amr":
		return "audio.amr"
	case "audio/wav", "audio/x-wav":
		return "audio.wav"
	case "audio/webm":
		return "audio.webm"
	default:
		return "audio.ogg"
	}
}

func cleanText(s string) string {
	return strings.TrimSpace(s)
}
