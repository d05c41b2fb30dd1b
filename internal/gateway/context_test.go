package gateway

import (
	"context"
	"testing"
)

func TestArtifactContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := ArtifactFrom(ctx); ok {
		t.Fatal("empty context should carry no artifact")
	}
	if WithArtifact(ctx, "") != ctx {
		t.Fatal("empty artifact should not wrap ctx")
	}
	got, ok := ArtifactFrom(WithArtifact(ctx, "a.b.c"))
	if !ok || got != "a.b.c" {
		t.Fatalf("ArtifactFrom = %q, %v", got, ok)
	}
}
