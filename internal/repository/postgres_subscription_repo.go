package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/subsense/internal/model"
	"github.com/hitoshi/subsense/internal/valuation"
)

const subscriptionColumns = `id, user_id, name, category, secondary_category, monthly_cost,
	usage_frequency, importance, billing_cycle, usage_scope, cancellation_friction,
	renewal_date, trial_end_date, notes, roi_score, status, created_at, updated_at`

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(s rowScanner) (*model.Subscription, error) {
	var (
		sub       model.Subscription
		secondary sql.NullString
		friction  sql.NullString
		renewal   sql.NullTime
		trialEnd  sql.NullTime
	)
	err := s.Scan(
		&sub.ID, &sub.UserID, &sub.Name, &sub.Category, &secondary, &sub.MonthlyCost,
		&sub.UsageFrequency, &sub.Importance, &sub.BillingCycle, &sub.UsageScope, &friction,
		&renewal, &trialEnd, &sub.Notes, &sub.ROIScore, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if secondary.Valid {
		sub.SecondaryCategory = &secondary.String
	}
	if friction.Valid {
		f := model.CancellationFriction(friction.String)
		sub.CancellationFriction = &f
	}
	if renewal.Valid {
		sub.RenewalDate = &renewal.Time
	}
	if trialEnd.Valid {
		sub.TrialEndDate = &trialEnd.Time
	}
	return &sub, nil
}

// rescore はスコアリング入力から派生値を再計算する。
// 書き込み経路は必ずこれを通すため、保存済みのroi_scoreとstatusは常に入力と一致する。
func rescore(sub *model.Subscription) {
	a := valuation.AssessSubscription(sub)
	sub.ROIScore = a.Score
	sub.Status = a.Status
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableFriction(f *model.CancellationFriction) sql.NullString {
	if f == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*f), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

// FindByUserAndName はユーザーIDと名前で購読を検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByUserAndName(ctx context.Context, userID, name string) (*model.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND LOWER(name) = LOWER($2)`,
		userID, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription by name: %w", err)
	}
	return sub, nil
}

// ListByUserID はユーザーの購読一覧を返す。
func (r *PostgresSubscriptionRepo) ListByUserID(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]model.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscription rows: %w", err)
	}
	return subs, nil
}

// CountByUserID はユーザーの購読数を返す。
func (r *PostgresSubscriptionRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

// ListUserIDs は購読を持つユーザーIDの一覧を返す。
func (r *PostgresSubscriptionRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM subscriptions ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribed users: %w", err)
	}
	return ids, nil
}

// Create は購読を作成する。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	rescore(sub)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		sub.ID, sub.UserID, sub.Name, sub.Category, nullableString(sub.SecondaryCategory), sub.MonthlyCost,
		sub.UsageFrequency, sub.Importance, sub.BillingCycle, sub.UsageScope, nullableFriction(sub.CancellationFriction),
		nullableTime(sub.RenewalDate), nullableTime(sub.TrialEndDate), sub.Notes, sub.ROIScore, sub.Status,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateSubscriptionName
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// Update は購読を行ロックしたうえで変更を適用し、派生値を再計算して保存する。
func (r *PostgresSubscriptionRepo) Update(ctx context.Context, id string, mutate SubscriptionMutator) (*model.Subscription, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sub, err := scanSubscription(tx.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock subscription: %w", err)
	}

	if mutate != nil {
		if err := mutate(sub); err != nil {
			return nil, err
		}
	}
	rescore(sub)
	sub.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx,
		`UPDATE subscriptions SET
			name = $2, category = $3, secondary_category = $4, monthly_cost = $5,
			usage_frequency = $6, importance = $7, billing_cycle = $8, usage_scope = $9,
			cancellation_friction = $10, renewal_date = $11, trial_end_date = $12, notes = $13,
			roi_score = $14, status = $15, updated_at = $16
		 WHERE id = $1`,
		sub.ID, sub.Name, sub.Category, nullableString(sub.SecondaryCategory), sub.MonthlyCost,
		sub.UsageFrequency, sub.Importance, sub.BillingCycle, sub.UsageScope,
		nullableFriction(sub.CancellationFriction), nullableTime(sub.RenewalDate), nullableTime(sub.TrialEndDate), sub.Notes,
		sub.ROIScore, sub.Status, sub.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateSubscriptionName
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return sub, nil
}

// Delete は指定IDの購読を削除する。
func (r *PostgresSubscriptionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}
	return nil
}

// DeleteByUserID はユーザーの全購読を削除する。
func (r *PostgresSubscriptionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user subscriptions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

// isUniqueViolation はPostgreSQLの一意制約違反(23505)かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
