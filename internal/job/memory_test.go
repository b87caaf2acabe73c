package job

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepository_SaveAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	j := NewWithID("tr-abc")
	j.SetPlan(100, 4)

	if err := repo.Save(ctx, j); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := repo.FindByID(ctx, "tr-abc")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != "tr-abc" {
		t.Errorf("expected tr-abc, got %s", found.ID)
	}
	if found.ChunksTotal != 4 {
		t.Errorf("expected 4 chunks, got %d", found.ChunksTotal)
	}

	// Returned job is a clone
	found.ChunksTotal = 99
	again, err := repo.FindByID(ctx, "tr-abc")
	if err != nil {
		t.Fatal(err)
	}
	if again.ChunksTotal != 4 {
		t.Error("expected repository copy to be isolated from reader mutations")
	}
}

func TestMemoryRepository_FindMissing(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), "tr-missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_SaveUpdates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	j := NewWithID("tr-abc")
	if err := repo.Save(ctx, j); err != nil {
		t.Fatal(err)
	}

	if err := j.Start(); err != nil {
		t.Fatal(err)
	}
	j.SetChunksProcessed(3)
	if err := repo.Save(ctx, j); err != nil {
		t.Fatal(err)
	}

	found, err := repo.FindByID(ctx, "tr-abc")
	if err != nil {
		t.Fatal(err)
	}
	if found.Status != StatusRunning {
		t.Errorf("expected RUNNING, got %s", found.Status)
	}
	if found.ChunksProcessed != 3 {
		t.Errorf("expected 3, got %d", found.ChunksProcessed)
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, jid := range []string{"tr-1", "tr-2", "tr-3"} {
		if err := repo.Save(ctx, NewWithID(jid)); err != nil {
			t.Fatal(err)
		}
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 3 {
		t.Errorf("expected 3 jobs, got %d", len(jobs))
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.Save(ctx, NewWithID("tr-abc")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "tr-abc"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "tr-abc"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on second delete, got %v", err)
	}
}
