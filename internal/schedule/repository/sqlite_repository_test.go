package repository

import (
	"context"
	"path/filepath"
	"testing"

	"actionitems-backend/pkg/database"
)

func newTestSQLiteRepository(t *testing.T) ScheduleRepository {
	t.Helper()
	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "schedules.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewSQLiteScheduleRepository(context.Background(), db)
	if err != nil {
		t.Fatalf("new sqlite repository: %v", err)
	}
	return repo
}

func TestSQLiteScheduleRepository(t *testing.T) {
	runRepositoryContract(t, newTestSQLiteRepository)
}

func TestSQLiteScheduleRepository_MigrationIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.db")
	ctx := context.Background()

	db, err := database.NewSQLiteConnection(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := NewSQLiteScheduleRepository(ctx, db)
	if err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if err := repo.Create(ctx, newSchedule("persisted", "user-1", baseTime)); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = db.Close()

	db, err = database.NewSQLiteConnection(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer db.Close()
	repo, err = NewSQLiteScheduleRepository(ctx, db)
	if err != nil {
		t.Fatalf("second migration: %v", err)
	}
	got, err := repo.FindByID(ctx, "persisted")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	assertSameSchedule(t, newSchedule("persisted", "user-1", baseTime), got)
}

func TestSQLiteScheduleRepository_DuplicateID(t *testing.T) {
	repo := newTestSQLiteRepository(t)
	ctx := context.Background()
	if err := repo.Create(ctx, newSchedule("dup", "u", baseTime)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, newSchedule("dup", "u", baseTime)); err == nil {
		t.Fatal("expected primary key violation")
	}
}
