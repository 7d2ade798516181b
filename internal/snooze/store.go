// Package snooze はアクションのスヌーズ状態を保持するストアを提供する。
// スヌーズはユーザー単位で(アクションID, 期限)の組として保存され、
// 期限を過ぎたものは読み取り時に無視される。
package snooze

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store はスヌーズ状態の永続化インターフェース。
type Store interface {
	// Snooze はアクションをuntilまでスヌーズする。既存のスヌーズは上書きされる。
	Snooze(ctx context.Context, userID, actionID string, until time.Time) error

	// Unsnooze はスヌーズを解除する。スヌーズされていなくてもエラーにしない。
	Unsnooze(ctx context.Context, userID, actionID string) error

	// Active はnow時点で有効なスヌーズをアクションIDから期限へのマップで返す。
	Active(ctx context.Context, userID string, now time.Time) (map[string]time.Time, error)

	// PurgeExpired は期限切れのスヌーズを削除し、削除件数を返す。
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteByUserID はユーザーの全スヌーズを削除する。退会時に使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// NewStore は利用可能なバックエンドでストアを生成する。
// redisClientがnilでなければRedisを使い、nilならPostgreSQLにフォールバックする。
func NewStore(redisClient *redis.Client, db *sql.DB) Store {
	if redisClient != nil {
		return NewRedisStore(redisClient)
	}
	return NewPostgresStore(db)
}

// Predicate はActiveの結果をアクション生成用の述語に変換する。
func Predicate(active map[string]time.Time) func(actionID string) bool {
	return func(actionID string) bool {
		_, ok := active[actionID]
		return ok
	}
}
