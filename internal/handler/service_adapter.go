package handler

import (
	"context"
	"time"

	"github.com/hitoshi/subsense/internal/model"
	"github.com/hitoshi/subsense/internal/subscription"
	"github.com/hitoshi/subsense/internal/user"
	"github.com/hitoshi/subsense/internal/valuation"
	"github.com/hitoshi/subsense/internal/vendor"
)

// SubscriptionServiceAdapter は subscription.Service を
// 購読・アクション・ダッシュボードの各ハンドラーインターフェースに適合させるアダプタ。
type SubscriptionServiceAdapter struct {
	svc *subscription.Service
}

// NewSubscriptionServiceAdapter はSubscriptionServiceAdapterを生成する。
func NewSubscriptionServiceAdapter(svc *subscription.Service) *SubscriptionServiceAdapter {
	return &SubscriptionServiceAdapter{svc: svc}
}

// List はユーザーの購読一覧をhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) List(ctx context.Context, userID string) ([]subscriptionResponse, error) {
	subs, err := a.svc.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]subscriptionResponse, len(subs))
	for i := range subs {
		results[i] = toSubscriptionResponse(&subs[i])
	}
	return results, nil
}

// Get は購読をhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) Get(ctx context.Context, userID, subscriptionID string) (*subscriptionResponse, error) {
	return wrapSubscription(a.svc.Get(ctx, userID, subscriptionID))
}

// Create は購読を登録しhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) Create(ctx context.Context, userID string, in subscription.Input) (*subscriptionResponse, error) {
	return wrapSubscription(a.svc.Create(ctx, userID, in))
}

// Update は購読を更新しhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) Update(ctx context.Context, userID, subscriptionID string, in subscription.Input) (*subscriptionResponse, error) {
	return wrapSubscription(a.svc.Update(ctx, userID, subscriptionID, in))
}

// Delete は購読を削除する。
func (a *SubscriptionServiceAdapter) Delete(ctx context.Context, userID, subscriptionID string) error {
	return a.svc.Delete(ctx, userID, subscriptionID)
}

// CancelLink は解約リンクをhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) CancelLink(ctx context.Context, userID, subscriptionID string) (*cancelLinkResponse, error) {
	link, err := a.svc.CancelLink(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	return toCancelLinkResponse(link), nil
}

// ActionItems はアクション一覧をhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) ActionItems(ctx context.Context, userID string) ([]actionItemResponse, error) {
	items, err := a.svc.ActionItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]actionItemResponse, len(items))
	for i, it := range items {
		results[i] = actionItemResponse{
			ID:               it.ID,
			Type:             string(it.Type),
			Priority:         string(it.Priority),
			SubscriptionID:   it.SubscriptionID,
			SubscriptionName: it.SubscriptionName,
			Title:            it.Title,
			Description:      it.Description,
			PotentialSavings: it.PotentialSavings,
			DueDate:          it.DueDate,
		}
	}
	return results, nil
}

// Snooze はアクションをスヌーズする。
func (a *SubscriptionServiceAdapter) Snooze(ctx context.Context, userID, actionID string, days int) (time.Time, error) {
	return a.svc.Snooze(ctx, userID, actionID, days)
}

// Unsnooze はスヌーズを解除する。
func (a *SubscriptionServiceAdapter) Unsnooze(ctx context.Context, userID, actionID string) error {
	return a.svc.Unsnooze(ctx, userID, actionID)
}

// Summary はダッシュボード集計をhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) Summary(ctx context.Context, userID string) (*summaryResponse, error) {
	s, err := a.svc.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(s.StatusCounts))
	for status, n := range s.StatusCounts {
		counts[string(status)] = n
	}
	return &summaryResponse{
		SubscriptionCount:       s.SubscriptionCount,
		TotalMonthlySpend:       s.TotalMonthlySpend,
		PotentialMonthlySavings: s.PotentialMonthlySavings,
		AverageScore:            s.AverageScore,
		StatusCounts:            counts,
		OpenActionCount:         s.OpenActionCount,
	}, nil
}

func wrapSubscription(sub *model.Subscription, err error) (*subscriptionResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := toSubscriptionResponse(sub)
	return &resp, nil
}

// toSubscriptionResponse はドメインのSubscriptionをhandlerのレスポンス型に変換する。
func toSubscriptionResponse(sub *model.Subscription) subscriptionResponse {
	b := valuation.AssessSubscription(sub).Breakdown
	breakdown := breakdownResponse{
		UsageValue:           b.UsageValue,
		CostEfficiency:       b.CostEfficiency,
		ReplacementRisk:      b.ReplacementRisk,
		CancellationFriction: b.CancellationFriction,
	}
	resp := subscriptionResponse{
		ID:                sub.ID,
		Name:              sub.Name,
		Category:          sub.Category,
		SecondaryCategory: sub.SecondaryCategory,
		MonthlyCost:       sub.MonthlyCost,
		NormalizedMonthly: valuation.NormalizeToMonthlyCost(sub.MonthlyCost, sub.BillingCycle),
		UsageFrequency:    string(sub.UsageFrequency),
		Importance:        string(sub.Importance),
		BillingCycle:      string(sub.BillingCycle),
		UsageScope:        string(sub.UsageScope),
		RenewalDate:       sub.RenewalDate,
		TrialEndDate:      sub.TrialEndDate,
		Notes:             sub.Notes,
		ROIScore:          sub.ROIScore,
		Breakdown:         breakdown,
		Status:            string(sub.Status),
		Recommendation:    string(valuation.RecommendationFromScore(sub.ROIScore)),
		CreatedAt:         sub.CreatedAt,
		UpdatedAt:         sub.UpdatedAt,
	}
	if sub.CancellationFriction != nil {
		f := string(*sub.CancellationFriction)
		resp.CancellationFriction = &f
	}
	return resp
}

func toCancelLinkResponse(link *vendor.CancelLink) *cancelLinkResponse {
	if link == nil {
		return &cancelLinkResponse{Found: false}
	}
	return &cancelLinkResponse{
		Found:       true,
		VendorID:    link.VendorID,
		URL:         link.URL,
		Source:      string(link.Source),
		Confidence:  string(link.Confidence),
		AskFeedback: link.AskFeedback,
	}
}

// VendorServiceAdapter は vendor.Service を VendorServiceInterface に適合させるアダプタ。
type VendorServiceAdapter struct {
	svc *vendor.Service
}

// NewVendorServiceAdapter はVendorServiceAdapterを生成する。
func NewVendorServiceAdapter(svc *vendor.Service) *VendorServiceAdapter {
	return &VendorServiceAdapter{svc: svc}
}

// List はベンダー一覧をhandlerレスポンス型で返す。
func (a *VendorServiceAdapter) List(ctx context.Context) ([]vendorResponse, error) {
	vendors, err := a.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]vendorResponse, len(vendors))
	for i := range vendors {
		results[i] = toVendorResponse(&vendors[i])
	}
	return results, nil
}

// Get はベンダーをhandlerレスポンス型で返す。
func (a *VendorServiceAdapter) Get(ctx context.Context, vendorID string) (*vendorResponse, error) {
	return wrapVendor(a.svc.Get(ctx, vendorID))
}

// Submit はベンダーを登録しhandlerレスポンス型で返す。
func (a *VendorServiceAdapter) Submit(ctx context.Context, name, cancelURL, fallbackURL string) (*vendorResponse, error) {
	return wrapVendor(a.svc.SubmitVendor(ctx, name, cancelURL, fallbackURL))
}

// RecordFeedback はフィードバックを記録しhandlerレスポンス型で返す。
func (a *VendorServiceAdapter) RecordFeedback(ctx context.Context, userID, vendorID string, outcome model.FeedbackOutcome) (*vendorResponse, error) {
	return wrapVendor(a.svc.RecordFeedback(ctx, userID, vendorID, outcome))
}

func wrapVendor(v *model.Vendor, err error) (*vendorResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := toVendorResponse(v)
	return &resp, nil
}

func toVendorResponse(v *model.Vendor) vendorResponse {
	return vendorResponse{
		ID:             v.ID,
		Name:           v.Name,
		Domain:         v.Domain,
		CancelURL:      v.CancelURL,
		FallbackURL:    v.FallbackURL,
		Confidence:     string(v.Confidence),
		SuccessCount:   v.SuccessCount,
		FailCount:      v.FailCount,
		SkipCount:      v.SkipCount,
		LastVerifiedAt: v.LastVerifiedAt,
	}
}

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc *user.Service
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc}
}

// Me はユーザー情報をhandlerレスポンス型で返す。
func (a *UserServiceAdapter) Me(ctx context.Context, userID string) (*userResponse, error) {
	u, err := a.svc.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Plan:      string(u.Plan),
		CreatedAt: u.CreatedAt,
	}, nil
}

// Withdraw はユーザーの退会処理を実行する。
func (a *UserServiceAdapter) Withdraw(ctx context.Context, userID string) error {
	return a.svc.Withdraw(ctx, userID)
}

// compile-time interface checks
var (
	_ SubscriptionServiceInterface = (*SubscriptionServiceAdapter)(nil)
	_ ActionServiceInterface       = (*SubscriptionServiceAdapter)(nil)
	_ DashboardServiceInterface    = (*SubscriptionServiceAdapter)(nil)
	_ VendorServiceInterface       = (*VendorServiceAdapter)(nil)
	_ UserServiceInterface         = (*UserServiceAdapter)(nil)
)
