package main

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/config"
	thunkerrors "github.com/wippyai/thunk-runtime/errors"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		in      string
		x, y    int64
		wantErr bool
	}{
		{"3 4", 3, 4, false},
		{"  -1   9 ", -1, 9, false},
		{"1", 0, 0, true},
		{"a b", 0, 0, true},
		{"1 2 3", 0, 0, true},
	}
	for _, tt := range tests {
		x, y, err := parseArgs(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseArgs(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && (x != tt.x || y != tt.y) {
			t.Errorf("parseArgs(%q) = %d, %d", tt.in, x, y)
		}
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig("", 12, "free-list", true)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Capacity != 12 || cfg.Strategy != "free-list" || cfg.LogLevel != "debug" {
		t.Fatalf("Overrides not applied: %+v", cfg)
	}
	if _, err := loadConfig("", 0, "lru", false); err == nil {
		t.Fatal("Expected error for unknown strategy")
	}
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Capacity = 2

	s, err := newSession(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}
	defer s.close(ctx)

	e1, k1, err := s.bind()
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	e2, k2, _ := s.bind()
	if k1 != 1 || k2 != 2 {
		t.Fatalf("multipliers = %d, %d", k1, k2)
	}
	if _, _, err := s.bind(); !errors.Is(err, thunkerrors.ErrPoolExhausted) {
		t.Fatalf("Expected PoolExhausted, got %v", err)
	}

	got, err := s.call(ctx, e1, 10, 3)
	if err != nil || got != 13 {
		t.Fatalf("call(e1) = %d, %v; want 13", got, err)
	}
	got, err = s.call(ctx, e2, 10, 3)
	if err != nil || got != 23 {
		t.Fatalf("call(e2) = %d, %v; want 23", got, err)
	}

	if err := s.pool.ReleaseThunk(e1); err != nil {
		t.Fatalf("ReleaseThunk failed: %v", err)
	}
	if _, err := s.call(ctx, e1, 1, 1); err == nil {
		t.Fatal("Calling a released entry should trap")
	}
}

func TestRun(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity = 3
	cfg.LogLevel = "error"
	if err := run(cfg, 5, 2); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}
