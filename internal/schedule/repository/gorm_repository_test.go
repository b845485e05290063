package repository

import (
	"os"
	"testing"

	"actionitems-backend/pkg/database"
)

// TEST_DATABASE_URL points at a disposable Postgres database; the table is
// emptied before each subtest.
func TestGormScheduleRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.NewPostgresConnection(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	runRepositoryContract(t, func(t *testing.T) ScheduleRepository {
		repo, err := NewGormScheduleRepository(db)
		if err != nil {
			t.Fatalf("new gorm repository: %v", err)
		}
		if err := db.Exec("DELETE FROM scheduled_action_item_emails").Error; err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return repo
	})
}
