package requestctx

import (
	"context"
	"testing"
)

func TestResolutionContextRoundTrip(t *testing.T) {
	ctx := WithResolutionContext(context.Background(), map[string]any{"combat": true})
	values := ResolutionContextFrom(ctx)
	if values == nil {
		t.Fatal("expected resolution context")
	}
	if values["combat"] != true {
		t.Fatalf("expected combat flag, got %v", values)
	}
}

func TestResolutionContextEmpty(t *testing.T) {
	if got := ResolutionContextFrom(context.Background()); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestResolutionContextNil(t *testing.T) {
	if got := ResolutionContextFrom(nil); got != nil {
		t.Fatalf("expected nil for nil context, got %v", got)
	}
	ctx := WithResolutionContext(nil, map[string]any{"zone": "tundra"})
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if got := ResolutionContextFrom(ctx); got["zone"] != "tundra" {
		t.Fatalf("expected zone value, got %v", got)
	}
}
