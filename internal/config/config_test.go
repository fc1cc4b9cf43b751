package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "cohere"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	expected := `embedding.provider must be "ollama" or "openai", got "cohere"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_OpenAIRequiresModel(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}, Embedding: EmbeddingConfig{Provider: ProviderOpenAI}}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing openai model")
	}
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name        string
		precise     float64
		recommended float64
		wantErr     bool
	}{
		{"defaults", 0.85, 0.70, false},
		{"equal", 0.8, 0.8, false},
		{"inverted", 0.7, 0.85, true},
		{"above one", 1.1, 0.7, true},
		{"negative recommended", 0.85, -0.1, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Match.PreciseThreshold = tc.precise
			cfg.Match.RecommendedThreshold = tc.recommended

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Embedding.Provider != ProviderOllama {
		t.Errorf("expected provider=ollama, got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.BaseURL != "http://localhost:11434" {
		t.Errorf("expected ollama base url, got %q", cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.Model != "bge-m3" {
		t.Errorf("expected model=bge-m3, got %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.TimeoutSec != 10 {
		t.Errorf("expected TimeoutSec=10, got %d", cfg.Embedding.TimeoutSec)
	}
	if cfg.Cache.MaxEntries != 10000 {
		t.Errorf("expected MaxEntries=10000, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Pool.TTLSec != 1800 {
		t.Errorf("expected TTLSec=1800, got %d", cfg.Pool.TTLSec)
	}
	if cfg.Pool.SweepIntervalSec != 60 {
		t.Errorf("expected SweepIntervalSec=60, got %d", cfg.Pool.SweepIntervalSec)
	}
	if cfg.Match.WindowMinutes != 90 {
		t.Errorf("expected WindowMinutes=90, got %d", cfg.Match.WindowMinutes)
	}
	if cfg.Match.PreciseThreshold != 0.85 || cfg.Match.RecommendedThreshold != 0.70 {
		t.Errorf("unexpected thresholds: %v / %v", cfg.Match.PreciseThreshold, cfg.Match.RecommendedThreshold)
	}
	if cfg.Embedding.RemoteCache.Enabled() {
		t.Error("remote cache must be disabled without addrs")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Embedding: EmbeddingConfig{Provider: ProviderOpenAI, Model: "text-embedding-3-small", TimeoutSec: 3},
		Cache:     CacheConfig{MaxEntries: -1},
		Pool:      PoolConfig{TTLSec: 60},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Embedding.BaseURL != "" {
		t.Errorf("openai base url must stay empty for the client default, got %q", cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.TimeoutSec != 3 {
		t.Errorf("expected TimeoutSec=3, got %d", cfg.Embedding.TimeoutSec)
	}
	if cfg.Cache.MaxEntries != -1 {
		t.Errorf("expected MaxEntries=-1, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Pool.TTLSec != 60 {
		t.Errorf("expected TTLSec=60, got %d", cfg.Pool.TTLSec)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("VECMATCH_TEST_PORT", "9090")

	data := []byte(`
http:
  port: ${VECMATCH_TEST_PORT}
embedding:
  model: ${VECMATCH_TEST_MODEL:-nomic-embed-text}
  remote_cache:
    addrs: ["localhost:6379"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected default model from expansion, got %q", cfg.Embedding.Model)
	}
	if !cfg.Embedding.RemoteCache.Enabled() {
		t.Error("expected remote cache to be enabled")
	}
}

func TestParse_CacheMaxEntries(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{"missing takes default", "http:\n  port: 8080\n", 10000},
		{"zero takes default", "http:\n  port: 8080\ncache:\n  max_entries: 0\n", 10000},
		{"negative is unbounded", "http:\n  port: 8080\ncache:\n  max_entries: -1\n", -1},
		{"explicit bound", "http:\n  port: 8080\ncache:\n  max_entries: 250\n", 250},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.yaml))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Cache.MaxEntries != tc.want {
				t.Errorf("expected max_entries %d, got %d", tc.want, cfg.Cache.MaxEntries)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VECMATCH_DOTENV_TEST=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("VECMATCH_DOTENV_TEST", "")
	os.Unsetenv("VECMATCH_DOTENV_TEST")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("VECMATCH_DOTENV_TEST"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestExpandEnvVars_Unset(t *testing.T) {
	out := string(expandEnvVars([]byte("key: ${VECMATCH_SURELY_UNSET_VAR}")))
	if strings.TrimSpace(out) != "key:" {
		t.Errorf("expected empty substitution, got %q", out)
	}
}
