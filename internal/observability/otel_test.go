package observability

import (
	"context"
	"testing"

	"github.com/yungbote/doubtclear-backend/internal/logger"
)

func TestInit_NoopUnlessEnabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	if shutdown := Init(context.Background(), logger.NewNop()); shutdown != nil {
		t.Fatalf("expected tracing off without OTEL_ENABLED")
	}
	t.Setenv("OTEL_ENABLED", "nope")
	if shutdown := Init(context.Background(), logger.NewNop()); shutdown != nil {
		t.Fatalf("expected tracing off for unrecognized OTEL_ENABLED value")
	}
}

func TestSampleRatio_Clamped(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 1.0},
		{"not-a-number", 1.0},
		{"0.25", 0.25},
		{"-3", 0},
		{"7", 1},
	}
	for _, tc := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", tc.raw)
		if got := sampleRatio(); got != tc.want {
			t.Fatalf("ratio for %q: expected %v, got %v", tc.raw, tc.want, got)
		}
	}
}
