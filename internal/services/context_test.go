package services_test

import (
	"context"
	"testing"

	"pspman/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithQueue(ctx, "install")
	ctx = services.WithProject(ctx, "fd")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if name, ok := services.QueueFromContext(ctx); !ok || name != "install" {
		t.Fatalf("unexpected queue: %v %v", name, ok)
	}
	if name, ok := services.ProjectFromContext(ctx); !ok || name != "fd" {
		t.Fatalf("unexpected project: %v %v", name, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQueue(ctx, "")
	ctx = services.WithProject(ctx, "")
	if _, ok := services.QueueFromContext(ctx); ok {
		t.Fatal("blank queue should not be stored")
	}
	if _, ok := services.ProjectFromContext(ctx); ok {
		t.Fatal("blank project should not be stored")
	}
}
