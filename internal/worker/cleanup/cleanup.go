// Package cleanup は期限切れデータの定期削除ジョブを提供する。
// 期限切れのアクションスヌーズと、外部認証基盤が発行した期限切れセッションを
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SnoozePurger は期限切れスヌーズの削除インターフェース。snooze.Storeが実装する。
type SnoozePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupJob は期限切れデータの削除ジョブ。
// 冪等であり、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	db      Executor
	snoozes SnoozePurger
	logger  *slog.Logger
	now     func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// dbがnilの場合はセッション削除を行わない。
func NewCleanupJob(db Executor, snoozes SnoozePurger, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:      db,
		snoozes: snoozes,
		logger:  logger,
		now:     time.Now,
	}
}

// Run は期限切れのスヌーズとセッションを削除する。
// 片方が失敗しても残りは実行し、最初のエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	now := j.now()

	var firstErr error

	snoozes, err := j.snoozes.PurgeExpired(ctx, now)
	if err != nil {
		j.logger.Error("期限切れスヌーズの削除に失敗しました", slog.String("error", err.Error()))
		firstErr = fmt.Errorf("期限切れスヌーズの削除に失敗: %w", err)
	}

	var sessions int64
	if j.db != nil {
		sessions, err = j.purgeSessions(ctx, now)
		if err != nil {
			j.logger.Error("期限切れセッションの削除に失敗しました", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_snoozes", snoozes),
		slog.Int64("deleted_sessions", sessions),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return firstErr
}

func (j *CleanupJob) purgeSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

// Start は起動直後に1回、その後interval間隔でRunを実行する。
// コンテキストがキャンセルされるまで戻らない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}
