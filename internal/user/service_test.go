package user

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hitoshi/subsense/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}

type deleterFunc func(ctx context.Context, userID string) error

func (f deleterFunc) DeleteByUserID(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

// --- テスト ---

// TestService_Withdraw は退会処理が全関連データを順に削除することを検証する。
func TestService_Withdraw(t *testing.T) {
	var calls []string
	record := func(name string) deleterFunc {
		return func(ctx context.Context, userID string) error {
			if userID != "user-1" {
				t.Errorf("%s called with %q", name, userID)
			}
			calls = append(calls, name)
			return nil
		}
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "test@example.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			calls = append(calls, "user")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{deleteByUserIDFn: record("sessions")}

	svc := NewService(userRepo, sessionRepo, record("subscriptions"), record("snoozes"))

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	want := []string{"snoozes", "subscriptions", "sessions", "user"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("delete order = %v, want %v", calls, want)
	}
}

// TestService_Withdraw_UserNotFound は存在しないユーザーの退会がエラーになることを検証する。
func TestService_Withdraw_UserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, nil, nil, nil)

	err := svc.Withdraw(context.Background(), "nonexistent-user")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected %s, got %v", model.ErrCodeUserNotFound, err)
	}
}

// 途中で失敗した場合はユーザーを削除しない
func TestService_Withdraw_StopsOnError(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Error("user should not be deleted")
			return nil
		},
	}
	failing := deleterFunc(func(ctx context.Context, userID string) error {
		return errors.New("redis down")
	})

	svc := NewService(userRepo, nil, nil, failing)
	if err := svc.Withdraw(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_Me(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Plan: model.PlanPro}, nil
		},
	}
	svc := NewService(userRepo, nil, nil, nil)

	u, err := svc.Me(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.IsPro() {
		t.Errorf("expected pro user, got %+v", u)
	}
}
