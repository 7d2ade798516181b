package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/subsense/internal/middleware"
	"github.com/hitoshi/subsense/internal/model"
	"github.com/hitoshi/subsense/internal/subscription"
)

// --- モック定義 ---

type mockSubscriptionService struct {
	listFn       func(ctx context.Context, userID string) ([]subscriptionResponse, error)
	getFn        func(ctx context.Context, userID, subscriptionID string) (*subscriptionResponse, error)
	createFn     func(ctx context.Context, userID string, in subscription.Input) (*subscriptionResponse, error)
	updateFn     func(ctx context.Context, userID, subscriptionID string, in subscription.Input) (*subscriptionResponse, error)
	deleteFn     func(ctx context.Context, userID, subscriptionID string) error
	cancelLinkFn func(ctx context.Context, userID, subscriptionID string) (*cancelLinkResponse, error)
}

func (m *mockSubscriptionService) List(ctx context.Context, userID string) ([]subscriptionResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []subscriptionResponse{}, nil
}

func (m *mockSubscriptionService) Get(ctx context.Context, userID, subscriptionID string) (*subscriptionResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, subscriptionID)
	}
	return nil, model.NewSubscriptionNotFoundError(subscriptionID)
}

func (m *mockSubscriptionService) Create(ctx context.Context, userID string, in subscription.Input) (*subscriptionResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return &subscriptionResponse{ID: "sub-new", Name: in.Name}, nil
}

func (m *mockSubscriptionService) Update(ctx context.Context, userID, subscriptionID string, in subscription.Input) (*subscriptionResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, subscriptionID, in)
	}
	return &subscriptionResponse{ID: subscriptionID, Name: in.Name}, nil
}

func (m *mockSubscriptionService) Delete(ctx context.Context, userID, subscriptionID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, subscriptionID)
	}
	return nil
}

func (m *mockSubscriptionService) CancelLink(ctx context.Context, userID, subscriptionID string) (*cancelLinkResponse, error) {
	if m.cancelLinkFn != nil {
		return m.cancelLinkFn(ctx, userID, subscriptionID)
	}
	return &cancelLinkResponse{Found: false}, nil
}

type mockActionService struct {
	actionItemsFn func(ctx context.Context, userID string) ([]actionItemResponse, error)
	snoozeFn      func(ctx context.Context, userID, actionID string, days int) (time.Time, error)
	unsnoozeFn    func(ctx context.Context, userID, actionID string) error
}

func (m *mockActionService) ActionItems(ctx context.Context, userID string) ([]actionItemResponse, error) {
	if m.actionItemsFn != nil {
		return m.actionItemsFn(ctx, userID)
	}
	return []actionItemResponse{}, nil
}

func (m *mockActionService) Snooze(ctx context.Context, userID, actionID string, days int) (time.Time, error) {
	if m.snoozeFn != nil {
		return m.snoozeFn(ctx, userID, actionID, days)
	}
	return time.Time{}, nil
}

func (m *mockActionService) Unsnooze(ctx context.Context, userID, actionID string) error {
	if m.unsnoozeFn != nil {
		return m.unsnoozeFn(ctx, userID, actionID)
	}
	return nil
}

type mockDashboardService struct {
	summaryFn func(ctx context.Context, userID string) (*summaryResponse, error)
}

func (m *mockDashboardService) Summary(ctx context.Context, userID string) (*summaryResponse, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, userID)
	}
	return &summaryResponse{StatusCounts: map[string]int{}}, nil
}

type mockVendorService struct {
	listFn     func(ctx context.Context) ([]vendorResponse, error)
	getFn      func(ctx context.Context, vendorID string) (*vendorResponse, error)
	submitFn   func(ctx context.Context, name, cancelURL, fallbackURL string) (*vendorResponse, error)
	feedbackFn func(ctx context.Context, userID, vendorID string, outcome model.FeedbackOutcome) (*vendorResponse, error)
}

func (m *mockVendorService) List(ctx context.Context) ([]vendorResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []vendorResponse{}, nil
}

func (m *mockVendorService) Get(ctx context.Context, vendorID string) (*vendorResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, vendorID)
	}
	return nil, model.NewVendorNotFoundError(vendorID)
}

func (m *mockVendorService) Submit(ctx context.Context, name, cancelURL, fallbackURL string) (*vendorResponse, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, name, cancelURL, fallbackURL)
	}
	return &vendorResponse{ID: "v-new", Name: name, CancelURL: cancelURL, Confidence: "low"}, nil
}

func (m *mockVendorService) RecordFeedback(ctx context.Context, userID, vendorID string, outcome model.FeedbackOutcome) (*vendorResponse, error) {
	if m.feedbackFn != nil {
		return m.feedbackFn(ctx, userID, vendorID, outcome)
	}
	return &vendorResponse{ID: vendorID, Confidence: "low"}, nil
}

type mockUserService struct {
	meFn       func(ctx context.Context, userID string) (*userResponse, error)
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Me(ctx context.Context, userID string) (*userResponse, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return &userResponse{ID: userID, Plan: "free"}, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// --- ヘルパー ---

// withUserID はセッションミドルウェアを通過した状態のリクエストを作る。
func withUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// decodeErrorCode はエラーレスポンスのcodeを取り出す。
func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v\nraw: %s", err, w.Body.String())
	}
	return body.Code
}
