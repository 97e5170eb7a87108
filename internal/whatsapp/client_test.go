package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendText(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/phone-1/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", PhoneID: "phone-1", Token: "tok"})
	require.NoError(t, c.SendText(context.Background(), "5511999990000", "Lançamento salvo:\nJoão | óleo | R$ 120.00"))

	assert.Equal(t, sendRequest{
		MessagingProduct: "whatsapp",
		To:               "5511999990000",
		Type:             "text",
		Text:             textBody{Body: "Lançamento salvo:\nJoão | óleo | R$ 120.00"},
	}, got)
}

func TestClient_SendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad token"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, PhoneID: "phone-1", Token: "tok"})
	err := c.SendText(context.Background(), "5511999990000", "oi")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "bad token")
}

func TestClient_FetchAudio(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/media-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(mediaInfo{URL: srv.URL + "/download/media-1", MimeType: "audio/ogg; codecs=opus"})
	})
	mux.HandleFunc("/download/media-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte("OggS-audio"))
	})

	c := NewClient(Config{BaseURL: srv.URL, PhoneID: "phone-1", Token: "tok"})
	data, mimeType, err := c.FetchAudio(context.Background(), "media-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("OggS-audio"), data)
	assert.Equal(t, "audio/ogg; codecs=opus", mimeType)
}

func TestClient_FetchAudioErrors(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/no-url", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mime_type":"audio/ogg"}`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(mediaInfo{URL: srv.URL + "/expired"})
	})
	mux.HandleFunc("/expired", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	c := NewClient(Config{BaseURL: srv.URL, Token: "tok"})
	for _, id := range []string{"", "missing", "no-url", "gone"} {
		_, _, err := c.FetchAudio(context.Background(), id)
		assert.Error(t, err, id)
	}
}
