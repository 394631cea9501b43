package knowledge

import (
	"testing"
	"time"
)

func TestBuildSearchConfigDefaults(t *testing.T) {
	cfg := buildSearchConfig(nil)
	if cfg.topK != DefaultTopK {
		t.Errorf("topK = %d, want %d", cfg.topK, DefaultTopK)
	}
	if cfg.corpus != "" {
		t.Errorf("corpus = %q, want empty", cfg.corpus)
	}
	if cfg.timeout != SearchTimeout {
		t.Errorf("timeout = %v, want %v", cfg.timeout, SearchTimeout)
	}
}

func TestBuildSearchConfigOptions(t *testing.T) {
	cfg := buildSearchConfig([]SearchOption{
		WithTopK(10),
		WithCorpus("nextjs"),
		WithTimeout(2 * time.Second),
	})
	if cfg.topK != 10 {
		t.Errorf("topK = %d, want 10", cfg.topK)
	}
	if cfg.corpus != "nextjs" {
		t.Errorf("corpus = %q, want nextjs", cfg.corpus)
	}
	if cfg.timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", cfg.timeout)
	}
}

func TestWithTopKIgnoresNonPositive(t *testing.T) {
	cfg := buildSearchConfig([]SearchOption{WithTopK(0), WithTopK(-3)})
	if cfg.topK != DefaultTopK {
		t.Errorf("topK = %d, want default %d", cfg.topK, DefaultTopK)
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil, nil, nil); err == nil {
		t.Fatal("NewStore(nil, nil, nil) expected error, got nil")
	}
}
