package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		wantErr bool
		enabled zapcore.Level
	}{
		{env: "prod", enabled: zapcore.InfoLevel},
		{env: "dev", enabled: zapcore.DebugLevel},
		{env: "", level: "warn", enabled: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		l, err := New(Options{Env: tt.env, Level: tt.level})
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q, %q): expected error", tt.env, tt.level)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.env, tt.level, err)
		}
		if !l.Core().Enabled(tt.enabled) {
			t.Errorf("New(%q, %q): expected %s enabled", tt.env, tt.level, tt.enabled)
		}
		if tt.enabled > zapcore.DebugLevel && l.Core().Enabled(tt.enabled-1) {
			t.Errorf("New(%q, %q): expected %s disabled", tt.env, tt.level, tt.enabled-1)
		}
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("Expected a no-op logger for empty context")
	}
	if FromContext(NewContext(context.Background(), nil)) == nil {
		t.Fatal("Expected a no-op logger for a nil stored logger")
	}

	l := zap.NewExample()
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("Expected the stored logger back")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("Expected a no-op logger for nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("Expected the given logger back")
	}
}
