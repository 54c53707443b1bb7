package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name.
	DefaultBaseDir = ".audioseg"
	// DefaultConfigFile is the default configuration filename.
	DefaultConfigFile = "config.yaml"
)

// ErrUnknownKey is returned by Context.Set for keys it does not know.
var ErrUnknownKey = errors.New("cli: unknown config key")

// Config is the on-disk configuration.
type Config struct {
	// CurrentContext is the name of the active context.
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts maps context names to their settings.
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named set of settings.
type Context struct {
	Name string `yaml:"name"`

	Storage    StorageConfig    `yaml:"storage,omitempty"`
	Segment    SegmentDefaults  `yaml:"segment,omitempty"`
	Transcribe TranscribeConfig `yaml:"transcribe,omitempty"`

	// ManifestDir is the badger directory holding the job manifest. Empty
	// means <config dir>/data/manifest.
	ManifestDir string `yaml:"manifest_dir,omitempty"`
}

// StorageConfig selects where segments are written.
type StorageConfig struct {
	// Kind is "local" (default) or "s3".
	Kind string `yaml:"kind,omitempty"`

	// Dir is the root directory of the local backend.
	Dir string `yaml:"dir,omitempty"`

	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// SegmentDefaults are the segment durations used when neither a job file
// nor a flag sets them.
type SegmentDefaults struct {
	SegmentDurationMs int64 `yaml:"segment_duration_ms,omitempty"`
	MinSegmentMs      int64 `yaml:"min_segment_ms,omitempty"`
}

// TranscribeConfig holds transcription credentials.
type TranscribeConfig struct {
	// Provider is "openai" (default) or "gemini".
	Provider     string `yaml:"provider,omitempty"`
	OpenAIAPIKey string `yaml:"openai_api_key,omitempty"`
	GeminiAPIKey string `yaml:"gemini_api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	Model        string `yaml:"model,omitempty"`
	Language     string `yaml:"language,omitempty"`
}

// LoadConfig loads the configuration at path, or at ~/.audioseg/config.yaml
// when path is empty. A missing file yields an empty configuration; it is
// created on the first Save.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = p.ConfigFile()
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, c := range cfg.Contexts {
		c.Name = name
	}
	return cfg, nil
}

// Save writes the configuration with owner-only permissions, since
// contexts carry credentials.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string { return c.configPath }

// Dir returns the config directory.
func (c *Config) Dir() string { return filepath.Dir(c.configPath) }

// SetContext adds or replaces a context and saves. The first context added
// becomes current.
func (c *Config) SetContext(name string, ctx *Context) error {
	if name == "" {
		return fmt.Errorf("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context and saves.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext makes name the current context and saves.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns the named context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one when name
// is empty. Without any current context it returns an empty context, so
// the tool works unconfigured with local storage.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name != "" {
		return c.GetContext(name)
	}
	if c.CurrentContext == "" {
		return &Context{Name: "default"}, nil
	}
	return c.GetContext(c.CurrentContext)
}

// ListContexts returns the context names in sorted order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Set assigns a setting by its dotted key, e.g. "storage.bucket".
func (ctx *Context) Set(key, value string) error {
	str := map[string]*string{
		"storage.kind":              &ctx.Storage.Kind,
		"storage.dir":               &ctx.Storage.Dir,
		"storage.bucket":            &ctx.Storage.Bucket,
		"storage.prefix":            &ctx.Storage.Prefix,
		"storage.region":            &ctx.Storage.Region,
		"storage.endpoint":          &ctx.Storage.Endpoint,
		"storage.access_key":        &ctx.Storage.AccessKey,
		"storage.secret_key":        &ctx.Storage.SecretKey,
		"transcribe.provider":       &ctx.Transcribe.Provider,
		"transcribe.openai_api_key": &ctx.Transcribe.OpenAIAPIKey,
		"transcribe.gemini_api_key": &ctx.Transcribe.GeminiAPIKey,
		"transcribe.base_url":       &ctx.Transcribe.BaseURL,
		"transcribe.model":          &ctx.Transcribe.Model,
		"transcribe.language":       &ctx.Transcribe.Language,
		"manifest_dir":              &ctx.ManifestDir,
	}
	if p, ok := str[key]; ok {
		*p = value
		return nil
	}

	ints := map[string]*int64{
		"segment.segment_duration_ms": &ctx.Segment.SegmentDurationMs,
		"segment.min_segment_ms":      &ctx.Segment.MinSegmentMs,
	}
	if p, ok := ints[key]; ok {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: want a non-negative integer, got %q", key, value)
		}
		*p = n
		return nil
	}

	if key == "storage.path_style" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		ctx.Storage.PathStyle = b
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Masked returns a copy of ctx with secrets masked for display.
func (ctx *Context) Masked() *Context {
	m := *ctx
	m.Storage.AccessKey = MaskAPIKey(m.Storage.AccessKey)
	m.Storage.SecretKey = MaskAPIKey(m.Storage.SecretKey)
	m.Transcribe.OpenAIAPIKey = MaskAPIKey(m.Transcribe.OpenAIAPIKey)
	m.Transcribe.GeminiAPIKey = MaskAPIKey(m.Transcribe.GeminiAPIKey)
	return &m
}

// MaskAPIKey masks all but the first and last four characters of key.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
