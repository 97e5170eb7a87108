package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autonomos/internal/log"
)

const (
	DefaultBaseURL = "https://graph.facebook.com/v21.0"

	// MaxMediaBytes caps audio downloads; Cloud API audio is at most 16 MB.
	MaxMediaBytes = 16 << 20
)

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp %s: status %d: %s", e.Op, e.Status, e.Body)
}

type Config struct {
	BaseURL    string
	PhoneID    string
	Token      string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to the WhatsApp Cloud API on behalf of one business phone number.
type Client struct {
	baseURL string
	phoneID string
	token   string
	http    *http.Client
	logger  *log.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default(log.ComponentWhatsApp)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		phoneID: cfg.PhoneID,
		token:   cfg.Token,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// SendText sends a plain text message to a WhatsApp user.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, url.PathEscape(c.phoneID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("send", resp); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Message sent", log.FieldTenant, to)
	return nil
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// FetchAudio resolves a media id and downloads its content.
func (c *Client) FetchAudio(ctx context.Context, mediaID string) ([]byte, string, error) {
	if mediaID == "" {
		return nil, "", fmt.Errorf("fetch media: empty media id")
	}

	info, err := c.mediaInfo(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("download", resp); err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	if len(data) > MaxMediaBytes {
		return nil, "", fmt.Errorf("media %s exceeds %d bytes", mediaID, MaxMediaBytes)
	}

	mimeType := info.MimeType
	if mimeType == "" {
		mimeType = resp.Header.Get("Content-Type")
	}
	c.logger.DebugContext(ctx, "Media downloaded", "media_id", mediaID, "bytes", len(data), "mime_type", mimeType)
	return data, mimeType, nil
}

func (c *Client) mediaInfo(ctx context.Context, mediaID string) (mediaInfo, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(mediaID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return mediaInfo{}, fmt.Errorf("build media request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return mediaInfo{}, fmt.Errorf("lookup media: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("media lookup", resp); err != nil {
		return mediaInfo{}, err
	}

	var info mediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return mediaInfo{}, fmt.Errorf("decode media info: %w", err)
	}
	if info.URL == "" {
		return mediaInfo{}, fmt.Errorf("media %s has no download url", mediaID)
	}
	return info, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.http.Do(req)
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
