// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/subsense/internal/model"
	"github.com/hitoshi/subsense/internal/repository"
)

// Deleter はユーザー単位の一括削除インターフェース。
// 購読リポジトリとスヌーズストアが実装する。
type Deleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
// プロフィール取得と退会処理を提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	subDeleter  Deleter
	snoozes     Deleter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	subDeleter Deleter,
	snoozes Deleter,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		subDeleter:  subDeleter,
		snoozes:     snoozes,
	}
}

// Me はログイン中のユーザー情報を返す。
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: スヌーズ → subscriptions → sessions → user
// スヌーズはRedisにある場合があるためCASCADEに任せず明示的に消す。
// vendor_feedbackは信頼度の根拠として残し、user_idのみNULLになる。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if _, err := s.Me(ctx, userID); err != nil {
		return err
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	if s.snoozes != nil {
		if err := s.snoozes.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("スヌーズの削除に失敗しました: %w", err)
		}
	}

	if s.subDeleter != nil {
		if err := s.subDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("購読の削除に失敗しました: %w", err)
		}
	}

	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)
	return nil
}
