package transcribe

import "net/http"

type config struct {
	model      string
	baseURL    string
	language   string
	prompt     string
	httpClient *http.Client
}

// Option configures a Transcriber.
type Option func(*config)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithLanguage sets the expected spoken language as an ISO-639-1 code.
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// WithPrompt passes a hint such as vocabulary or the previous segment's
// text.
func WithPrompt(prompt string) Option {
	return func(c *config) { c.prompt = prompt }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}
