package snooze

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore はaction_snoozesテーブルにスヌーズを保持する。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Snooze はアクションをuntilまでスヌーズする。
func (s *PostgresStore) Snooze(ctx context.Context, userID, actionID string, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_snoozes (user_id, action_id, until)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, action_id) DO UPDATE SET until = EXCLUDED.until`,
		userID, actionID, until,
	)
	if err != nil {
		return fmt.Errorf("スヌーズの保存に失敗しました: %w", err)
	}
	return nil
}

// Unsnooze はスヌーズを解除する。
func (s *PostgresStore) Unsnooze(ctx context.Context, userID, actionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM action_snoozes WHERE user_id = $1 AND action_id = $2`,
		userID, actionID,
	)
	if err != nil {
		return fmt.Errorf("スヌーズの解除に失敗しました: %w", err)
	}
	return nil
}

// Active は有効なスヌーズを返す。
func (s *PostgresStore) Active(ctx context.Context, userID string, now time.Time) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action_id, until FROM action_snoozes WHERE user_id = $1 AND until > $2`,
		userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("スヌーズ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	active := make(map[string]time.Time)
	for rows.Next() {
		var (
			id    string
			until time.Time
		)
		if err := rows.Scan(&id, &until); err != nil {
			return nil, fmt.Errorf("スヌーズ行の読み取りに失敗しました: %w", err)
		}
		active[id] = until
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スヌーズ一覧の走査に失敗しました: %w", err)
	}
	return active, nil
}

// PurgeExpired は期限切れのスヌーズを削除する。
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM action_snoozes WHERE until <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れスヌーズの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return n, nil
}

// DeleteByUserID はユーザーの全スヌーズを削除する。
func (s *PostgresStore) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM action_snoozes WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("ユーザーのスヌーズ削除に失敗しました: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
