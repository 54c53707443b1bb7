package transcribe

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/haivivi/audioseg/pkg/storage"
)

const (
	geminiDefaultModel  = "gemini-2.5-flash"
	geminiDefaultPrompt = "Transcribe the speech in this audio verbatim. Reply with the transcript only."
)

// Gemini implements [Transcriber] by asking a Gemini model to transcribe
// inline audio.
type Gemini struct {
	client *genai.Client
	model  string
	prompt string
}

var _ Transcriber = (*Gemini)(nil)

// NewGemini creates a Gemini transcriber.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	cfg := config{model: geminiDefaultModel}
	for _, o := range opts {
		o(&cfg)
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.httpClient,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	prompt := geminiDefaultPrompt
	if cfg.language != "" {
		prompt += " The language is " + cfg.language + "."
	}
	if cfg.prompt != "" {
		prompt += "\n" + cfg.prompt
	}
	return &Gemini{client: client, model: cfg.model, prompt: prompt}, nil
}

// Transcribe sends the audio inline with the transcription prompt.
func (g *Gemini) Transcribe(ctx context.Context, name string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(g.prompt),
			genai.NewPartFromBytes(audio, storage.ContentType(name)),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
