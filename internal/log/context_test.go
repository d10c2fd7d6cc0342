package log

import (
	"context"
	"testing"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
		want string
	}{
		{"nil context", nil, "test-id-123", "test-id-123"},
		{"background context", context.Background(), "req-456", "req-456"},
		{"empty request id", context.Background(), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.id)
			if got := RequestIDFromContext(ctx); got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextWithMediaFileID(t *testing.T) {
	ctx := ContextWithMediaFileID(context.Background(), 42)
	got, ok := MediaFileIDFromContext(ctx)
	if !ok || got != 42 {
		t.Errorf("MediaFileIDFromContext() = (%v, %v), want (42, true)", got, ok)
	}

	_, ok = MediaFileIDFromContext(context.Background())
	if ok {
		t.Error("expected ok=false for context without media file id")
	}

	_, ok = MediaFileIDFromContext(nil)
	if ok {
		t.Error("expected ok=false for nil context")
	}
}

func TestRequestIDFromContextWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), requestIDKey, 123)
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty string for wrong type, got %v", got)
	}
}

func TestWithContextEnriches(t *testing.T) {
	base := WithComponent("test")

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithMediaFileID(ctx, 7)

	enriched := WithContext(ctx, base)
	if enriched.GetLevel() != base.GetLevel() {
		t.Error("level should be preserved")
	}

	// No correlation fields on a bare context: same logger level, no panic.
	plain := WithContext(context.Background(), base)
	if plain.GetLevel() != base.GetLevel() {
		t.Error("level should be preserved for empty context")
	}
}

func TestWithComponentFromContext(t *testing.T) {
	ctx := ContextWithMediaFileID(context.Background(), 99)
	l := WithComponentFromContext(ctx, "linker")
	if l.GetLevel() > 5 {
		t.Error("expected a valid logger")
	}
}

func TestFromContextFallsBackToBase(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if FromContext(nil) == nil {
		t.Fatal("expected non-nil logger for nil context")
	}
}
