package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestGetPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Fatal("Get did not panic without Init")
		}
	}()
	Get()
}

func TestInitAndLevels(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	// Init resets the level to info.
	if got := levelVar.Level(); got != slog.LevelInfo {
		t.Fatalf("level after Init = %v, want info", got)
	}

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range cases {
		if err := SetLevelString(in); err != nil {
			t.Fatalf("SetLevelString(%q): %v", in, err)
		}
		if got := levelVar.Level(); got != want {
			t.Errorf("SetLevelString(%q) set %v, want %v", in, got, want)
		}
	}

	if err := SetLevelString("shouting"); err == nil {
		t.Error("SetLevelString accepted an unknown level")
	}
}

func TestFieldConstructors(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		field Field
		key   string
		value interface{}
	}{
		{String("conn", "c-1"), "conn", "c-1"},
		{Int("members", 3), "members", 3},
		{Float64("score", 0.85), "score", 0.85},
		{Bool("accepted", true), "accepted", true},
		{Duration("elapsed", 250 * time.Millisecond), "elapsed", 250 * time.Millisecond},
		{Any("payload", map[string]int{"n": 1}), "payload", map[string]int{"n": 1}},
		{Error(boom), "error", boom},
	}
	for _, c := range cases {
		if c.field.Key != c.key {
			t.Errorf("field key = %q, want %q", c.field.Key, c.key)
		}
	}

	attrs := convertFields([]Field{cases[0].field, cases[3].field, cases[4].field})
	if len(attrs) != 3 {
		t.Fatalf("convertFields returned %d attrs, want 3", len(attrs))
	}
	if attrs[1].Value.Bool() != true {
		t.Errorf("bool attr = %v, want true", attrs[1].Value)
	}
	if attrs[2].Value.Duration() != 250*time.Millisecond {
		t.Errorf("duration attr = %v, want 250ms", attrs[2].Value)
	}
}

func TestNamedLoggerLogs(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("dispatch")
	if named == nil {
		t.Fatal("named logger is nil")
	}

	ctx := context.Background()
	named.Debug(ctx, "handling event", String("event", "help:ask"))
	named.Info(ctx, "event routed", Int("recipients", 2), Duration("took", time.Millisecond))
	named.Warn(ctx, "buffer full", Bool("dropped", true))
	named.Error(ctx, "handler failed", Error(errors.New("no such topic")))
}
