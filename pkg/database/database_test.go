package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewSQLiteConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "schedules.db")
	db, err := NewSQLiteConnection(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}

func TestNewSQLiteConnection_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteConnection("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("value = %q", got)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "http://nope"); err == nil {
		t.Fatal("expected error for non-redis URL")
	}
}

func TestNewPostgresConnection_RequiresDSN(t *testing.T) {
	if _, err := NewPostgresConnection(""); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
