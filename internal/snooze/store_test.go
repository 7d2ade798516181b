package snooze

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client), mr
}

func TestRedisStore_SnoozeAndActive(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	until := testNow.Add(7 * 24 * time.Hour)
	if err := store.Snooze(ctx, "user-1", "cancel:sub-1", until); err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}

	active, err := store.Active(ctx, "user-1", testNow)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	got, ok := active["cancel:sub-1"]
	if !ok {
		t.Fatalf("expected cancel:sub-1 to be snoozed, got %v", active)
	}
	if !got.Equal(until) {
		t.Errorf("until = %v, want %v", got, until)
	}

	// 他ユーザーのスヌーズは見えない
	other, err := store.Active(ctx, "user-2", testNow)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no snoozes for user-2, got %v", other)
	}
}

// 期限を過ぎたスヌーズは無視され、読み取り時に削除される。
func TestRedisStore_ExpiredIsIgnored(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Snooze(ctx, "user-1", "review:a", testNow.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := store.Snooze(ctx, "user-1", "review:b", testNow); err != nil {
		t.Fatal(err)
	}
	if err := store.Snooze(ctx, "user-1", "review:c", testNow.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	active, err := store.Active(ctx, "user-1", testNow)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected only review:c, got %v", active)
	}
	if _, ok := active["review:c"]; !ok {
		t.Errorf("expected review:c, got %v", active)
	}

	members, err := mr.ZMembers("snooze:user-1")
	if err != nil {
		t.Fatalf("ZMembers failed: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("expired members should be removed, got %v", members)
	}
}

func TestRedisStore_SnoozeOverwritesAndUnsnooze(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	store.Snooze(ctx, "user-1", "cancel:x", testNow.Add(time.Hour))
	later := testNow.Add(48 * time.Hour)
	store.Snooze(ctx, "user-1", "cancel:x", later)

	active, _ := store.Active(ctx, "user-1", testNow)
	if got := active["cancel:x"]; !got.Equal(later) {
		t.Errorf("until = %v, want %v", got, later)
	}

	if err := store.Unsnooze(ctx, "user-1", "cancel:x"); err != nil {
		t.Fatalf("Unsnooze failed: %v", err)
	}
	// 2回目の解除もエラーにならない
	if err := store.Unsnooze(ctx, "user-1", "cancel:x"); err != nil {
		t.Fatalf("second Unsnooze failed: %v", err)
	}
	active, _ = store.Active(ctx, "user-1", testNow)
	if len(active) != 0 {
		t.Errorf("expected no snoozes, got %v", active)
	}
}

func TestRedisStore_PurgeExpired(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	store.Snooze(ctx, "user-1", "cancel:a", testNow.Add(-time.Hour))
	store.Snooze(ctx, "user-2", "cancel:b", testNow.Add(-time.Hour))
	store.Snooze(ctx, "user-2", "cancel:c", testNow.Add(time.Hour))

	n, err := store.PurgeExpired(ctx, testNow)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 2 {
		t.Errorf("purged = %d, want 2", n)
	}
}

func TestPostgresStore_Snooze_Upserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	until := testNow.Add(time.Hour)
	mock.ExpectExec(`INSERT INTO action_snoozes .+ ON CONFLICT \(user_id, action_id\) DO UPDATE`).
		WithArgs("user-1", "cancel:x", until).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Snooze(context.Background(), "user-1", "cancel:x", until); err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_Active(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	until := testNow.Add(time.Hour)
	mock.ExpectQuery(`SELECT action_id, until FROM action_snoozes WHERE user_id = \$1 AND until > \$2`).
		WithArgs("user-1", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"action_id", "until"}).AddRow("cancel:x", until))

	active, err := store.Active(context.Background(), "user-1", testNow)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if !active["cancel:x"].Equal(until) {
		t.Errorf("active = %v", active)
	}
}

func TestPostgresStore_PurgeExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectExec(`DELETE FROM action_snoozes WHERE until <= \$1`).
		WithArgs(testNow).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.PurgeExpired(context.Background(), testNow)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 3 {
		t.Errorf("purged = %d, want 3", n)
	}
}

func TestNewStore_SelectsBackend(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	if _, ok := NewStore(client, nil).(*RedisStore); !ok {
		t.Error("expected RedisStore when a redis client is given")
	}
	if _, ok := NewStore(nil, nil).(*PostgresStore); !ok {
		t.Error("expected PostgresStore without a redis client")
	}
}

func TestPredicate(t *testing.T) {
	p := Predicate(map[string]time.Time{"cancel:a": testNow})
	if !p("cancel:a") || p("cancel:b") {
		t.Error("Predicate should report only snoozed ids")
	}
}

func TestRedisStore_DeleteByUserID(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	store.Snooze(ctx, "user-1", "cancel:a", testNow.Add(time.Hour))
	store.Snooze(ctx, "user-2", "cancel:b", testNow.Add(time.Hour))

	if err := store.DeleteByUserID(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteByUserID failed: %v", err)
	}
	if mr.Exists("snooze:user-1") {
		t.Error("snooze:user-1 should be deleted")
	}
	if !mr.Exists("snooze:user-2") {
		t.Error("snooze:user-2 should remain")
	}
}

func TestPostgresStore_DeleteByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectExec(`DELETE FROM action_snoozes WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := store.DeleteByUserID(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeleteByUserID failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
