package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/subsense/internal/model"
)

const vendorColumns = `id, name, domain, cancel_url, fallback_url, confidence,
	success_count, fail_count, skip_count, last_verified_at, created_at, updated_at`

// PostgresVendorRepo はPostgreSQLを使用したベンダーリポジトリ。
type PostgresVendorRepo struct {
	db *sql.DB
}

// NewPostgresVendorRepo はPostgresVendorRepoを生成する。
func NewPostgresVendorRepo(db *sql.DB) *PostgresVendorRepo {
	return &PostgresVendorRepo{db: db}
}

func scanVendor(s rowScanner) (*model.Vendor, error) {
	var (
		v        model.Vendor
		verified sql.NullTime
	)
	err := s.Scan(
		&v.ID, &v.Name, &v.Domain, &v.CancelURL, &v.FallbackURL, &v.Confidence,
		&v.SuccessCount, &v.FailCount, &v.SkipCount, &verified, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if verified.Valid {
		v.LastVerifiedAt = &verified.Time
	}
	return &v, nil
}

// FindByID は指定IDのベンダーを取得する。見つからない場合はnilを返す。
func (r *PostgresVendorRepo) FindByID(ctx context.Context, id string) (*model.Vendor, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}
	return v, nil
}

// FindByName は名前でベンダーを検索する。見つからない場合はnilを返す。
func (r *PostgresVendorRepo) FindByName(ctx context.Context, name string) (*model.Vendor, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE LOWER(name) = LOWER($1)`,
		name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vendor by name: %w", err)
	}
	return v, nil
}

// FindByDomain は登録ドメインでベンダーを検索する。見つからない場合はnilを返す。
func (r *PostgresVendorRepo) FindByDomain(ctx context.Context, domain string) (*model.Vendor, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE domain = $1 ORDER BY created_at ASC LIMIT 1`,
		domain,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vendor by domain: %w", err)
	}
	return v, nil
}

// List はベンダー一覧を名前順で返す。
func (r *PostgresVendorRepo) List(ctx context.Context) ([]model.Vendor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	vendors := make([]model.Vendor, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor row: %w", err)
		}
		vendors = append(vendors, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vendor rows: %w", err)
	}
	return vendors, nil
}

// Create はベンダーを作成する。
func (r *PostgresVendorRepo) Create(ctx context.Context, v *model.Vendor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vendors (id, name, domain, cancel_url, fallback_url, confidence,
			success_count, fail_count, skip_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, $7, $8)`,
		v.ID, v.Name, v.Domain, v.CancelURL, v.FallbackURL, v.Confidence, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// RecordFeedback はフィードバックを追加し、信頼度を再計算して保存する。
// 件数は常に全フィードバックから数え直すため、キャッシュ値がずれても次の書き込みで収束する。
func (r *PostgresVendorRepo) RecordFeedback(ctx context.Context, fb *model.VendorFeedback, rate ConfidenceRater) (*model.Vendor, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	v, err := scanVendor(tx.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1 FOR UPDATE`,
		fb.VendorID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock vendor: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO vendor_feedback (id, vendor_id, user_id, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		fb.ID, fb.VendorID, fb.UserID, fb.Outcome, fb.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert feedback: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM vendor_feedback WHERE vendor_id = $1 GROUP BY outcome`,
		fb.VendorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	var counts model.FeedbackCounts
	for rows.Next() {
		var (
			outcome model.FeedbackOutcome
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan feedback count: %w", err)
		}
		switch outcome {
		case model.OutcomeSuccess:
			counts.SuccessCount = n
		case model.OutcomeFail:
			counts.FailCount = n
		case model.OutcomeSkip:
			counts.SkipCount = n
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate feedback counts: %w", err)
	}
	rows.Close()

	v.SuccessCount = counts.SuccessCount
	v.FailCount = counts.FailCount
	v.SkipCount = counts.SkipCount
	v.Confidence = rate(counts)
	v.UpdatedAt = time.Now()
	if fb.Outcome == model.OutcomeSuccess {
		verified := fb.CreatedAt
		v.LastVerifiedAt = &verified
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE vendors SET confidence = $2, success_count = $3, fail_count = $4, skip_count = $5,
			last_verified_at = $6, updated_at = $7
		 WHERE id = $1`,
		v.ID, v.Confidence, v.SuccessCount, v.FailCount, v.SkipCount, nullableTime(v.LastVerifiedAt), v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update vendor confidence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return v, nil
}

// compile-time interface check
var _ VendorRepository = (*PostgresVendorRepo)(nil)
