package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Str("song_id", "abc").Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["message"] != "visible" || entry["song_id"] != "abc" || entry["service"] != "spotifiuby" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewTextAndBadLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "nonsense", Format: "text", Output: &buf})

	logger.Debug().Msg("dropped")
	logger.Info().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("debug should be filtered at default level: %q", out)
	}
	if !strings.Contains(out, "kept") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output, got %q", out)
	}
}

func TestSetGlobalLoggerBacksContextLookups(t *testing.T) {
	prevGlobal, prevDefault := log.Logger, zerolog.DefaultContextLogger
	t.Cleanup(func() {
		log.Logger = prevGlobal
		zerolog.DefaultContextLogger = prevDefault
	})

	var buf bytes.Buffer
	SetGlobalLogger(New(Config{Output: &buf}))

	zerolog.Ctx(context.Background()).Info().Msg("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Fatalf("expected context lookup to fall back to the global logger, got %q", buf.String())
	}
}
