package zerolog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

func TestZerologLogger_NewLogger(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestZerologLogger_AllLevels(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Debug("debug message", pricing.Field{Key: "key", Value: "value"})
	logger.Info("info message", pricing.Field{Key: "key", Value: "value"})
	logger.Warn("warn message", pricing.Field{Key: "key", Value: "value"})
	logger.Error("error message", pricing.Field{Key: "key", Value: "value"})

	lines := strings.Count(output.String(), "\n")
	if lines != 4 {
		t.Errorf("Expected 4 log lines, got %d", lines)
	}
}

func TestZerologLogger_LogLevelFiltering(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output).Level(zerolog.WarnLevel))

	logger.Debug("debug message")
	logger.Info("info message")

	if output.Len() != 0 {
		t.Error("Expected debug and info to be filtered out")
	}

	logger.Warn("warn message")
	logger.Error("error message")

	if output.Len() == 0 {
		t.Error("Expected warn and error to be logged")
	}
}

func TestZerologLogger_MultipleFields(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Info("pricing state resolved",
		pricing.Field{Key: "tier", Value: "FOUNDERS_75"},
		pricing.Field{Key: "count", Value: 3},
		pricing.Field{Key: "price", Value: 9.75},
	)

	out := output.String()
	if !strings.Contains(out, `"tier":"FOUNDERS_75"`) {
		t.Errorf("Expected tier field in output, got %s", out)
	}
	if !strings.Contains(out, `"count":3`) {
		t.Errorf("Expected count field in output, got %s", out)
	}
}
