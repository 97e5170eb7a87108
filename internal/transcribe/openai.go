package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const (
	OpenAIEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	WhisperModel   = "whisper-1"
)

// OpenAI transcribes audio with the Whisper API.
type OpenAI struct {
	endpoint string
	apiKey   string
	model    string
	language string
	http     *http.Client
}

type OpenAIOption func(*OpenAI)

func WithEndpoint(url string) OpenAIOption {
	return func(o *OpenAI) { o.endpoint = url }
}

// WithLanguage hints the spoken language as an ISO-639-1 code.
func WithLanguage(lang string) OpenAIOption {
	return func(o *OpenAI) { o.language = lang }
}

func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.http = c }
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		endpoint: OpenAIEndpoint,
		apiKey:   apiKey,
		model:    WhisperModel,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type whisperResponse struct {
	Text string `json:"text"`
}

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	body, contentType, err := o.form(audio, mimeType)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call whisper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("whisper: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode whisper response: %w", err)
	}
	return cleanText(out.Text), nil
}

func (o *OpenAI) form(audio []byte, mimeType string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName(mimeType)))
	header.Set("Content-Type", baseMIMEType(mimeType))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}

	if err := w.WriteField("model", o.model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if o.language != "" {
		if err := w.WriteField("language", o.language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var _ Transcriber = (*OpenAI)(nil)
