// Package subscription は購読管理のドメインロジックを提供する。
// 登録・更新時の入力検証、アクション生成、スヌーズ、ダッシュボード集計を扱う。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/subsense/internal/action"
	"github.com/hitoshi/subsense/internal/metrics"
	"github.com/hitoshi/subsense/internal/model"
	"github.com/hitoshi/subsense/internal/repository"
	"github.com/hitoshi/subsense/internal/snooze"
	"github.com/hitoshi/subsense/internal/valuation"
	"github.com/hitoshi/subsense/internal/vendor"
)

const (
	maxNameLength     = 100
	maxCategoryLength = 50
	maxNotesLength    = 1000

	// monthly_cost列(NUMERIC(10,2))に収まる最大額
	maxMonthlyCost = 99999999.99

	// DefaultFreePlanLimit は無料プランで登録できる購読数の既定値。
	DefaultFreePlanLimit = 5
	// DefaultSnoozeDays はスヌーズ日数未指定時の既定値。
	DefaultSnoozeDays = 7
	maxSnoozeDays     = 365
)

// Sanitizer はユーザー入力からマークアップを除去するインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// CancelLinkFinder はサービス名から解約リンクを探すインターフェース。
type CancelLinkFinder interface {
	CancelLinkForName(ctx context.Context, name string) (*vendor.CancelLink, error)
}

// Input は購読の登録・更新時の入力値。
// BillingCycleとUsageScopeは空なら既定値（monthly, personal）になる。
type Input struct {
	Name                 string
	Category             string
	SecondaryCategory    *string
	MonthlyCost          float64
	UsageFrequency       model.UsageFrequency
	Importance           model.Importance
	BillingCycle         model.BillingCycle
	UsageScope           model.UsageScope
	CancellationFriction *model.CancellationFriction
	RenewalDate          *time.Time
	TrialEndDate         *time.Time
	Notes                string
}

// Summary はダッシュボード用の集計値。
type Summary struct {
	SubscriptionCount       int
	TotalMonthlySpend       float64 // 請求期間を月額換算した合計
	PotentialMonthlySavings float64 // 解約候補の月額合計
	AverageScore            float64
	StatusCounts            map[model.SubscriptionStatus]int
	OpenActionCount         int
}

// Options はServiceの任意設定。
type Options struct {
	FreePlanLimit int
	SnoozeDays    int
}

// Service は購読管理のサービス層。
type Service struct {
	subRepo    repository.SubscriptionRepository
	userRepo   repository.UserRepository
	snoozes    snooze.Store
	links      CancelLinkFinder
	sanitizer  Sanitizer
	metrics    metrics.MetricsCollector
	freeLimit  int
	snoozeDays int
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// links, sanitizer, mはnilでもよい。
func NewService(
	subRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	snoozes snooze.Store,
	links CancelLinkFinder,
	sanitizer Sanitizer,
	m metrics.MetricsCollector,
	opts Options,
) *Service {
	if opts.FreePlanLimit <= 0 {
		opts.FreePlanLimit = DefaultFreePlanLimit
	}
	if opts.SnoozeDays <= 0 {
		opts.SnoozeDays = DefaultSnoozeDays
	}
	return &Service{
		subRepo:    subRepo,
		userRepo:   userRepo,
		snoozes:    snoozes,
		links:      links,
		sanitizer:  sanitizer,
		metrics:    m,
		freeLimit:  opts.FreePlanLimit,
		snoozeDays: opts.SnoozeDays,
		now:        time.Now,
	}
}

// List はユーザーの購読一覧を登録順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.Subscription, error) {
	subs, err := s.subRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	return subs, nil
}

// Get はユーザーが所有する購読を返す。他ユーザーの購読は存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	sub, err := s.subRepo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	if sub == nil || sub.UserID != userID {
		return nil, model.NewSubscriptionNotFoundError(subscriptionID)
	}
	return sub, nil
}

// Create は購読を登録する。
// フロー: 入力検証 → プラン上限チェック → 名前の重複チェック → 保存（スコアはリポジトリで算出）
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.Subscription, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if !user.IsPro() {
		count, err := s.subRepo.CountByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("購読数の確認に失敗しました: %w", err)
		}
		if count >= s.freeLimit {
			return nil, model.NewSubscriptionLimitError(s.freeLimit)
		}
	}

	existing, err := s.subRepo.FindByUserAndName(ctx, userID, in.Name)
	if err != nil {
		return nil, fmt.Errorf("購読の重複確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSubscriptionNameError(in.Name)
	}

	now := s.now()
	sub := &model.Subscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(sub, in)

	if err := s.subRepo.Create(ctx, sub); err != nil {
		// 重複確認と登録の間に同名の購読が作られた場合
		if errors.Is(err, repository.ErrDuplicateSubscriptionName) {
			return nil, model.NewDuplicateSubscriptionNameError(in.Name)
		}
		return nil, fmt.Errorf("購読の登録に失敗しました: %w", err)
	}
	s.recordScored(sub)

	slog.Info("subscription created",
		slog.String("user_id", userID),
		slog.String("subscription_id", sub.ID),
		slog.Int("roi_score", sub.ROIScore),
		slog.String("status", string(sub.Status)),
	)
	return sub, nil
}

// Update は購読の内容を置き換える。スコアと状態は同じトランザクション内で再計算される。
func (s *Service) Update(ctx context.Context, userID, subscriptionID string, in Input) (*model.Subscription, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx, userID, subscriptionID); err != nil {
		return nil, err
	}

	existing, err := s.subRepo.FindByUserAndName(ctx, userID, in.Name)
	if err != nil {
		return nil, fmt.Errorf("購読の重複確認に失敗しました: %w", err)
	}
	if existing != nil && existing.ID != subscriptionID {
		return nil, model.NewDuplicateSubscriptionNameError(in.Name)
	}

	updated, err := s.subRepo.Update(ctx, subscriptionID, func(sub *model.Subscription) error {
		if sub.UserID != userID {
			return model.NewSubscriptionNotFoundError(subscriptionID)
		}
		apply(sub, in)
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateSubscriptionName) {
		return nil, model.NewDuplicateSubscriptionNameError(in.Name)
	}
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewSubscriptionNotFoundError(subscriptionID)
	}
	s.recordScored(updated)
	return updated, nil
}

// Delete は購読を削除する。
func (s *Service) Delete(ctx context.Context, userID, subscriptionID string) error {
	if _, err := s.Get(ctx, userID, subscriptionID); err != nil {
		return err
	}
	if err := s.subRepo.Delete(ctx, subscriptionID); err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return nil
}

// ActionItems はユーザーの購読からアクションを生成し、スヌーズ中のものを除いて返す。
func (s *Service) ActionItems(ctx context.Context, userID string) ([]model.ActionItem, error) {
	subs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.actionItems(ctx, userID, subs)
}

func (s *Service) actionItems(ctx context.Context, userID string, subs []model.Subscription) ([]model.ActionItem, error) {
	now := s.now()
	items := action.Generate(subs, now)

	active, err := s.snoozes.Active(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("スヌーズ状態の取得に失敗しました: %w", err)
	}
	return action.FilterSnoozed(items, snooze.Predicate(active)), nil
}

// Snooze はアクションを指定日数スヌーズし、期限を返す。daysが0以下なら既定日数を使う。
// アクションIDは形式と購読の所有者を検証する。
func (s *Service) Snooze(ctx context.Context, userID, actionID string, days int) (time.Time, error) {
	if days <= 0 {
		days = s.snoozeDays
	}
	if days > maxSnoozeDays {
		return time.Time{}, model.NewValidationError("days", fmt.Sprintf("1〜%dの範囲で指定してください", maxSnoozeDays))
	}
	if err := s.checkActionOwner(ctx, userID, actionID); err != nil {
		return time.Time{}, err
	}

	until := s.now().AddDate(0, 0, days)
	if err := s.snoozes.Snooze(ctx, userID, actionID, until); err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// Unsnooze はアクションのスヌーズを解除する。
func (s *Service) Unsnooze(ctx context.Context, userID, actionID string) error {
	if err := s.checkActionOwner(ctx, userID, actionID); err != nil {
		return err
	}
	return s.snoozes.Unsnooze(ctx, userID, actionID)
}

func (s *Service) checkActionOwner(ctx context.Context, userID, actionID string) error {
	_, subID, ok := action.ParseID(actionID)
	if !ok {
		return model.NewInvalidActionIDError(actionID)
	}
	_, err := s.Get(ctx, userID, subID)
	return err
}

// Summary はダッシュボード用の集計を返す。
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	subs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.actionItems(ctx, userID, subs)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		SubscriptionCount: len(subs),
		StatusCounts: map[model.SubscriptionStatus]int{
			model.StatusGood:   0,
			model.StatusReview: 0,
			model.StatusCut:    0,
		},
		OpenActionCount: len(items),
	}
	var scoreTotal int
	for i := range subs {
		sum.TotalMonthlySpend += valuation.NormalizeToMonthlyCost(subs[i].MonthlyCost, subs[i].BillingCycle)
		sum.StatusCounts[subs[i].Status]++
		scoreTotal += subs[i].ROIScore
	}
	for _, item := range items {
		if item.Type == model.ActionCancel && item.PotentialSavings != nil {
			sum.PotentialMonthlySavings += *item.PotentialSavings
		}
	}
	if len(subs) > 0 {
		sum.AverageScore = roundTo(float64(scoreTotal)/float64(len(subs)), 1)
	}
	sum.TotalMonthlySpend = roundTo(sum.TotalMonthlySpend, 2)
	sum.PotentialMonthlySavings = roundTo(sum.PotentialMonthlySavings, 2)
	return sum, nil
}

// CancelLink は購読名に一致するベンダーの解約リンクを返す。
// 一致するベンダーがない場合はnilを返す。
func (s *Service) CancelLink(ctx context.Context, userID, subscriptionID string) (*vendor.CancelLink, error) {
	sub, err := s.Get(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if s.links == nil {
		return nil, nil
	}
	return s.links.CancelLinkForName(ctx, sub.Name)
}

// normalize は入力を整形・検証し、既定値を補う。
func (s *Service) normalize(in Input) (Input, error) {
	in.Name = s.sanitize(in.Name)
	if in.Name == "" || utf8.RuneCountInString(in.Name) > maxNameLength {
		return in, model.NewValidationError("name", fmt.Sprintf("1〜%d文字で入力してください", maxNameLength))
	}

	in.Category = s.sanitize(in.Category)
	if in.Category == "" {
		in.Category = valuation.CategoryOther.String()
	}
	if utf8.RuneCountInString(in.Category) > maxCategoryLength {
		return in, model.NewValidationError("category", fmt.Sprintf("%d文字以内で入力してください", maxCategoryLength))
	}
	if in.SecondaryCategory != nil {
		sc := s.sanitize(*in.SecondaryCategory)
		switch {
		case sc == "":
			in.SecondaryCategory = nil
		case utf8.RuneCountInString(sc) > maxCategoryLength:
			return in, model.NewValidationError("secondary_category", fmt.Sprintf("%d文字以内で入力してください", maxCategoryLength))
		default:
			in.SecondaryCategory = &sc
		}
	}

	if math.IsNaN(in.MonthlyCost) || math.IsInf(in.MonthlyCost, 0) {
		return in, model.NewValidationError("monthly_cost", "0より大きい金額を入力してください")
	}
	// スコアは保存される値と同じ精度で算出する
	in.MonthlyCost = math.Round(in.MonthlyCost*100) / 100
	if in.MonthlyCost <= 0 {
		return in, model.NewValidationError("monthly_cost", "0より大きい金額を入力してください")
	}
	if in.MonthlyCost > maxMonthlyCost {
		return in, model.NewValidationError("monthly_cost", fmt.Sprintf("%.2f以下の金額を入力してください", maxMonthlyCost))
	}
	if !in.UsageFrequency.Valid() {
		return in, model.NewValidationError("usage_frequency", "daily, weekly, monthly, rareのいずれかを指定してください")
	}
	if !in.Importance.Valid() {
		return in, model.NewValidationError("importance", "low, medium, highのいずれかを指定してください")
	}
	if in.BillingCycle == "" {
		in.BillingCycle = model.BillingMonthly
	}
	if !in.BillingCycle.Valid() {
		return in, model.NewValidationError("billing_cycle", "monthly, annual, quarterly, trialのいずれかを指定してください")
	}
	if in.UsageScope == "" {
		in.UsageScope = model.ScopePersonal
	}
	if !in.UsageScope.Valid() {
		return in, model.NewValidationError("usage_scope", "personal, team, familyのいずれかを指定してください")
	}
	if in.CancellationFriction != nil && !in.CancellationFriction.Valid() {
		return in, model.NewValidationError("cancellation_friction", "easy, moderate, painfulのいずれかを指定してください")
	}

	in.Notes = s.sanitize(in.Notes)
	if utf8.RuneCountInString(in.Notes) > maxNotesLength {
		return in, model.NewValidationError("notes", fmt.Sprintf("%d文字以内で入力してください", maxNotesLength))
	}
	return in, nil
}

func (s *Service) sanitize(v string) string {
	if s.sanitizer == nil {
		return strings.TrimSpace(v)
	}
	return s.sanitizer.SanitizeText(v)
}

func (s *Service) recordScored(sub *model.Subscription) {
	if s.metrics != nil {
		s.metrics.RecordSubscriptionScored(string(sub.Status))
	}
}

// apply は検証済みの入力をレコードに書き込む。ROIScoreとStatusはリポジトリが設定する。
func apply(sub *model.Subscription, in Input) {
	sub.Name = in.Name
	sub.Category = in.Category
	sub.SecondaryCategory = in.SecondaryCategory
	sub.MonthlyCost = in.MonthlyCost
	sub.UsageFrequency = in.UsageFrequency
	sub.Importance = in.Importance
	sub.BillingCycle = in.BillingCycle
	sub.UsageScope = in.UsageScope
	sub.CancellationFriction = in.CancellationFriction
	sub.RenewalDate = in.RenewalDate
	sub.TrialEndDate = in.TrialEndDate
	sub.Notes = in.Notes
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
