package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Provider:         ProviderOllama, // no API key needed
		ModelName:        "llama3.3",
		OllamaHost:       "http://localhost:11434",
		EmbedderModel:    "nomic-embed-text",
		CorpusLabel:      DefaultCorpusLabel,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "chatdocs",
		PostgresPassword: "secret",
		PostgresDBName:   "chatdocs",
		PostgresSSLMode:  "disable",
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini default", ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"ollama", ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"openai", ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{"already qualified", ProviderGemini, "googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := c.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty", ""},
		{"short", "abc"},
		{"exactly eight", "12345678"},
		{"long", "my_long_secret_key_123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked := maskSecret(tt.secret)
			if tt.secret == "" {
				if masked != "" {
					t.Errorf("empty secret should mask to empty, got %q", masked)
				}
				return
			}
			// The full secret must never survive masking.
			if len(tt.secret) > 4 && strings.Contains(masked, tt.secret) {
				t.Errorf("masked value %q contains the secret", masked)
			}
			if !strings.Contains(masked, maskedValue) {
				t.Errorf("masked value %q missing mask placeholder", masked)
			}
		})
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	c := validConfig()
	c.PostgresPassword = "super_secret_password"

	data, err := c.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if strings.Contains(string(data), "super_secret_password") {
		t.Error("password leaked into JSON output")
	}
}

func TestStringMasksPassword(t *testing.T) {
	c := validConfig()
	c.PostgresPassword = "another_secret_value"
	if strings.Contains(c.String(), "another_secret_value") {
		t.Error("password leaked into String() output")
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if err := validConfig().Validate(); err != nil {
			t.Errorf("valid config rejected: %v", err)
		}
	})

	t.Run("bad provider", func(t *testing.T) {
		c := validConfig()
		c.Provider = "claude"
		if err := c.Validate(); err == nil {
			t.Error("expected error for unknown provider")
		}
	})

	t.Run("empty model", func(t *testing.T) {
		c := validConfig()
		c.ModelName = "  "
		if err := c.Validate(); err == nil {
			t.Error("expected error for empty model name")
		}
	})

	t.Run("bad port", func(t *testing.T) {
		c := validConfig()
		c.PostgresPort = 0
		if err := c.Validate(); err == nil {
			t.Error("expected error for port 0")
		}
	})

	t.Run("bad sslmode", func(t *testing.T) {
		c := validConfig()
		c.PostgresSSLMode = "maybe"
		if err := c.Validate(); err == nil {
			t.Error("expected error for unknown sslmode")
		}
	})

	t.Run("empty corpus label", func(t *testing.T) {
		c := validConfig()
		c.CorpusLabel = ""
		if err := c.Validate(); err == nil {
			t.Error("expected error for empty corpus label")
		}
	})
}
