package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("RAGSYNC_TEST_VAR", "")
	if got := EnvOrDefault("RAGSYNC_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("empty var should yield the default, got %q", got)
	}
	t.Setenv("RAGSYNC_TEST_VAR", "explicit")
	if got := EnvOrDefault("RAGSYNC_TEST_VAR", "fallback"); got != "explicit" {
		t.Errorf("set var should win over the default, got %q", got)
	}
}

func TestInitLevelFromEnv(t *testing.T) {
	t.Setenv("RAGSYNC_LOG_LEVEL", "debug")
	Init()
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", zerolog.GlobalLevel())
	}

	t.Setenv("RAGSYNC_LOG_LEVEL", "")
	Init()
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("unset level should default to info, got %v", zerolog.GlobalLevel())
	}
}
