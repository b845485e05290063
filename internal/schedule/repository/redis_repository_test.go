package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisScheduleRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) ScheduleRepository {
		_, client := newTestRedis(t)
		return NewRedisScheduleRepository(client, "test:")
	})
}

func TestRedisScheduleRepository_KeyLayout(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisScheduleRepository(client, "")
	ctx := context.Background()

	if err := repo.Create(ctx, newSchedule("sched-1", "user-1", baseTime)); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, key := range []string{
		"actionitems:schedule:sched-1",
		"actionitems:user:user-1:schedules",
		"actionitems:next_run",
		"actionitems:seq",
	} {
		if !mr.Exists(key) {
			t.Errorf("expected key %q to exist", key)
		}
	}
	score, err := mr.ZScore("actionitems:next_run", "sched-1")
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	if int64(score) != baseTime.UnixMilli() {
		t.Fatalf("next_run score = %v, want %d", score, baseTime.UnixMilli())
	}

	if _, err := repo.Delete(ctx, "sched-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("actionitems:schedule:sched-1") {
		t.Fatal("schedule document survived delete")
	}
	if members, _ := mr.ZMembers("actionitems:next_run"); len(members) != 0 {
		t.Fatalf("due index still holds %v", members)
	}
}

func TestRedisScheduleRepository_PrefixesIsolate(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	a := NewRedisScheduleRepository(client, "a:")
	b := NewRedisScheduleRepository(client, "b:")

	if err := a.Create(ctx, newSchedule("shared", "user-1", baseTime)); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := b.FindByID(ctx, "shared")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("prefix b sees schedule from prefix a: %+v", got)
	}
}

func TestRedisScheduleRepository_DuplicateID(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRedisScheduleRepository(client, "")
	ctx := context.Background()
	if err := repo.Create(ctx, newSchedule("dup", "u", baseTime)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, newSchedule("dup", "u", baseTime)); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
