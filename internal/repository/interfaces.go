// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/subsense/internal/model"
)

// ErrDuplicateSubscriptionName は同一ユーザー内で購読名が一意制約に違反した場合に返される。
var ErrDuplicateSubscriptionName = errors.New("subscription name already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、subscriptions、action_snoozesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッションの発行は外部の認証基盤が行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// SubscriptionMutator は行ロック取得後の購読に変更を適用する関数。
// エラーを返した場合はトランザクションがロールバックされる。
type SubscriptionMutator func(sub *model.Subscription) error

// SubscriptionRepository は購読データの永続化インターフェース。
// roi_scoreとstatusは書き込みのたびにスコアリング入力から再計算され、
// 呼び出し側が設定した値は無視される。
type SubscriptionRepository interface {
	// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Subscription, error)

	// FindByUserAndName はユーザーIDと名前（大文字小文字を区別しない）で購読を検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndName(ctx context.Context, userID, name string) (*model.Subscription, error)

	// ListByUserID はユーザーの購読一覧を作成日時の昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.Subscription, error)

	// CountByUserID はユーザーの購読数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// ListUserIDs は購読を1件以上持つユーザーIDの一覧を返す。
	ListUserIDs(ctx context.Context) ([]string, error)

	// Create は購読を作成する。ROIスコアとステータスは再計算してsubに反映する。
	Create(ctx context.Context, sub *model.Subscription) error

	// Update は購読をSELECT ... FOR UPDATEでロックし、mutateを適用したうえで
	// ROIスコアとステータスを再計算して同一トランザクションで書き込む。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, id string, mutate SubscriptionMutator) (*model.Subscription, error)

	// Delete は指定IDの購読を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全購読を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ConfidenceRater は結果別件数から信頼度を算出する純粋関数。
type ConfidenceRater func(counts model.FeedbackCounts) model.VendorConfidence

// VendorRepository はベンダーと解約リンクフィードバックの永続化インターフェース。
type VendorRepository interface {
	// FindByID は指定IDのベンダーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Vendor, error)

	// FindByName は名前（大文字小文字を区別しない）でベンダーを検索する。
	// 見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Vendor, error)

	// FindByDomain は登録ドメインでベンダーを検索する。見つからない場合はnilを返す。
	FindByDomain(ctx context.Context, domain string) (*model.Vendor, error)

	// List はベンダー一覧を名前順で返す。
	List(ctx context.Context) ([]model.Vendor, error)

	// Create はベンダーを作成する。
	Create(ctx context.Context, vendor *model.Vendor) error

	// RecordFeedback はフィードバックを1件追加し、ベンダーの全フィードバックから
	// 信頼度を再計算して同一トランザクションで保存する。
	// ベンダー行はFOR UPDATEでロックされ、同一ベンダーへの同時更新は直列化される。
	// last_verified_atは成功フィードバックの場合のみ更新する。
	// ベンダーが見つからない場合はnilを返す。
	RecordFeedback(ctx context.Context, feedback *model.VendorFeedback, rate ConfidenceRater) (*model.Vendor, error)
}
