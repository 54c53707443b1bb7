package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if len(cfg.Contexts) != 0 {
		t.Errorf("Contexts = %v, want empty", cfg.Contexts)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("loading must not create the file")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("contexts: [unclosed"), 0o600)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() should fail on invalid YAML")
	}
}

func TestConfig_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, _ := LoadConfig(path)

	err := cfg.SetContext("prod", &Context{
		Storage:    StorageConfig{Kind: "s3", Bucket: "audio", Prefix: "calls", Region: "us-east-1", PathStyle: true},
		Segment:    SegmentDefaults{SegmentDurationMs: 30000, MinSegmentMs: 1000},
		Transcribe: TranscribeConfig{Provider: "gemini", GeminiAPIKey: "g-secret-key"},
	})
	if err != nil {
		t.Fatalf("SetContext() error = %v", err)
	}
	if cfg.CurrentContext != "prod" {
		t.Errorf("first context should become current, got %q", cfg.CurrentContext)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := loaded.ResolveContext("")
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Name != "prod" || ctx.Storage.Bucket != "audio" || !ctx.Storage.PathStyle {
		t.Errorf("storage = %+v", ctx.Storage)
	}
	if ctx.Segment.SegmentDurationMs != 30000 || ctx.Segment.MinSegmentMs != 1000 {
		t.Errorf("segment = %+v", ctx.Segment)
	}
	if ctx.Transcribe.GeminiAPIKey != "g-secret-key" {
		t.Errorf("transcribe = %+v", ctx.Transcribe)
	}
}

func TestConfig_Contexts(t *testing.T) {
	cfg, _ := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	cfg.SetContext("b", &Context{})
	cfg.SetContext("a", &Context{})

	if got := strings.Join(cfg.ListContexts(), ","); got != "a,b" {
		t.Errorf("ListContexts() = %s", got)
	}
	if err := cfg.UseContext("a"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) should fail")
	}
	if ctx, _ := cfg.ResolveContext(""); ctx.Name != "a" {
		t.Errorf("current = %q, want a", ctx.Name)
	}
	if ctx, _ := cfg.ResolveContext("b"); ctx.Name != "b" {
		t.Errorf("ResolveContext(b) = %q", ctx.Name)
	}
	if _, err := cfg.ResolveContext("missing"); err == nil {
		t.Error("ResolveContext(missing) should fail")
	}

	if err := cfg.DeleteContext("a"); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("deleting the current context should clear it, got %q", cfg.CurrentContext)
	}
	if err := cfg.DeleteContext("a"); err == nil {
		t.Error("DeleteContext twice should fail")
	}
	if err := cfg.SetContext("", &Context{}); err == nil {
		t.Error("SetContext with empty name should fail")
	}
}

func TestConfig_ResolveUnconfigured(t *testing.T) {
	cfg, _ := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	ctx, err := cfg.ResolveContext("")
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Name != "default" || ctx.Storage.Kind != "" {
		t.Errorf("ctx = %+v", ctx)
	}
}

func TestContext_Set(t *testing.T) {
	var ctx Context
	for _, kv := range [][2]string{
		{"storage.kind", "s3"},
		{"storage.bucket", "b"},
		{"storage.path_style", "true"},
		{"segment.segment_duration_ms", "15000"},
		{"segment.min_segment_ms", "0"},
		{"transcribe.openai_api_key", "sk-x"},
		{"manifest_dir", "/var/lib/audioseg"},
	} {
		if err := ctx.Set(kv[0], kv[1]); err != nil {
			t.Fatalf("Set(%s) error = %v", kv[0], err)
		}
	}
	if ctx.Storage.Kind != "s3" || ctx.Storage.Bucket != "b" || !ctx.Storage.PathStyle {
		t.Errorf("storage = %+v", ctx.Storage)
	}
	if ctx.Segment.SegmentDurationMs != 15000 {
		t.Errorf("segment = %+v", ctx.Segment)
	}
	if ctx.Transcribe.OpenAIAPIKey != "sk-x" || ctx.ManifestDir != "/var/lib/audioseg" {
		t.Errorf("ctx = %+v", ctx)
	}

	if err := ctx.Set("storage.colour", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("unknown key err = %v", err)
	}
	if err := ctx.Set("segment.min_segment_ms", "-5"); err == nil {
		t.Error("negative duration should fail")
	}
	if err := ctx.Set("storage.path_style", "maybe"); err == nil {
		t.Error("bad bool should fail")
	}
}

func TestContext_Masked(t *testing.T) {
	ctx := &Context{Storage: StorageConfig{SecretKey: "abcdefghijkl"}, Transcribe: TranscribeConfig{OpenAIAPIKey: "sk-1234567890"}}
	m := ctx.Masked()
	if m.Storage.SecretKey != "abcd****ijkl" || m.Transcribe.OpenAIAPIKey != "sk-1*****7890" {
		t.Errorf("masked = %+v", m)
	}
	if ctx.Storage.SecretKey != "abcdefghijkl" {
		t.Error("Masked modified the original")
	}
}
