package services_test

import (
	"context"
	"testing"

	"podscribe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemID(ctx, 42)
	ctx = services.WithStage(ctx, "download")
	ctx = services.WithLane(ctx, "pipeline")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "download" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != "pipeline" {
		t.Fatalf("unexpected lane: %v %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestItemIDMissing(t *testing.T) {
	if _, ok := services.ItemIDFromContext(context.Background()); ok {
		t.Fatal("expected no item id on fresh context")
	}
}
