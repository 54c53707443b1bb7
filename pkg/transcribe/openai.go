package transcribe

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/haivivi/audioseg/pkg/storage"
)

// OpenAI implements [Transcriber] with the OpenAI audio transcription API.
// Any OpenAI-compatible provider works through WithBaseURL.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
	prompt   string
}

var _ Transcriber = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI transcriber. The default model is whisper-1.
func NewOpenAI(apiKey string, opts ...Option) *OpenAI {
	cfg := config{
		model:      string(openai.AudioModelWhisper1),
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAI{
		client:   &client,
		model:    cfg.model,
		language: cfg.language,
		prompt:   cfg.prompt,
	}
}

// Transcribe uploads audio as a multipart file named name.
func (o *OpenAI) Transcribe(ctx context.Context, name string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	params := openai.AudioTranscriptionNewParams{
		Model:          openai.AudioModel(o.model),
		File:           openai.File(bytes.NewReader(audio), name, storage.ContentType(name)),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}
	if o.prompt != "" {
		params.Prompt = openai.String(o.prompt)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
