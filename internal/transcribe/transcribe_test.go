package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"":                       "audio.ogg",
		"audio/ogg; codecs=opus": "audio.ogg",
		"audio/mpeg":             "audio.mp3",
		"audio/mp4":              "audio.m4a",
		"audio/amr":              "audio.amr",
		"not a mime":             "audio.ogg",
	}
	for in, want := range tests {
		assert.Equal(t, want, fileName(in), in)
	}
}

func TestOpenAI_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, WhisperModel, r.FormValue("model"))
		assert.Equal(t, "pt", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "audio.ogg", hdr.Filename)
		assert.Equal(t, "audio/ogg", hdr.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, "OggS", string(data))

		w.Write([]byte(`{"text":" Cliente João, troca de óleo, 120 reais. "}`))
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", WithEndpoint(srv.URL), WithLanguage("pt"), WithHTTPClient(srv.Client()))
	text, err := o.Transcribe(context.Background(), []byte("OggS"), "audio/ogg; codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "Cliente João, troca de óleo, 120 reais.", text)
}

func TestOpenAI_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", WithEndpoint(srv.URL))
	_, err := o.Transcribe(context.Background(), []byte("OggS"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = o.Transcribe(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

type fakeGenerator struct {
	parts []genai.Part
	resp  *genai.GenerateContentResponse
	err   error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func TestGemini_Transcribe(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Maria; pintura; "), genai.Text("45,90\n")}},
		}},
	}}
	g := &Gemini{model: gen}

	text, err := g.Transcribe(context.Background(), []byte("OggS"), "audio/ogg; codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "Maria; pintura; 45,90", text)

	require.Len(t, gen.parts, 2)
	assert.Equal(t, genai.Blob{MIMEType: "audio/ogg", Data: []byte("OggS")}, gen.parts[0])
	assert.NoError(t, g.Close())
}

func TestGemini_Errors(t *testing.T) {
	g := &Gemini{model: &fakeGenerator{err: errors.New("quota")}}
	_, err := g.Transcribe(context.Background(), []byte("x"), "")
	assert.Error(t, err)

	g = &Gemini{model: &fakeGenerator{resp: &genai.GenerateContentResponse{}}}
	_, err = g.Transcribe(context.Background(), []byte("x"), "")
	assert.Error(t, err)

	_, err = g.Transcribe(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrEmptyAudio)

	_, err = NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}
