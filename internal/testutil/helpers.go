package testutil

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vagledaren/vagledaren/internal/config"
	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/i18n"
)

// TestLogger returns a discarding logger for tests.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestConfig returns a config with sensible test defaults.
func TestConfig() *config.Config {
	cfg, err := config.LoadDefault()
	if err != nil {
		panic(err)
	}
	cfg.Generation.Simulated = true
	cfg.Registry.FetchConcurrency = 4
	cfg.Database.Path = ""
	return cfg
}

// TestTranslator creates a translator over the embedded locales. The real
// locale files are small enough that tests use them directly.
func TestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator("sv")
	if err != nil {
		t.Fatalf("failed to create translator: %v", err)
	}
	return tr
}

// StreamOf builds a generate.Stream that yields the given chunks.
func StreamOf(chunks ...string) *generate.Stream {
	i := 0
	return generate.NewStream(func() (string, error) {
		if i >= len(chunks) {
			return "", io.EOF
		}
		chunk := chunks[i]
		i++
		return chunk, nil
	}, nil)
}

// CollectStream drains a stream and fails the test on error.
func CollectStream(t *testing.T, s *generate.Stream) string {
	t.Helper()
	out, err := s.Collect()
	if err != nil {
		t.Fatalf("stream collect failed: %v", err)
	}
	return out
}

// Ptr returns a pointer to the given value. Useful for optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// ContainsAll fails the test unless s contains every substring.
func ContainsAll(t *testing.T, s string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			t.Errorf("expected %q to contain %q", s, sub)
		}
	}
}
