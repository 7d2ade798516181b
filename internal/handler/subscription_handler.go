package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/subsense/internal/middleware"
	"github.com/hitoshi/subsense/internal/model"
	"github.com/hitoshi/subsense/internal/subscription"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// List はユーザーの購読一覧を返す。
	List(ctx context.Context, userID string) ([]subscriptionResponse, error)
	// Get は所有する購読を1件返す。
	Get(ctx context.Context, userID, subscriptionID string) (*subscriptionResponse, error)
	// Create は購読を登録し、スコアリング済みの結果を返す。
	Create(ctx context.Context, userID string, in subscription.Input) (*subscriptionResponse, error)
	// Update は購読の入力値を置き換え、再スコアリングした結果を返す。
	Update(ctx context.Context, userID, subscriptionID string, in subscription.Input) (*subscriptionResponse, error)
	// Delete は購読を削除する。
	Delete(ctx context.Context, userID, subscriptionID string) error
	// CancelLink は購読に対応する解約リンクを返す。
	CancelLink(ctx context.Context, userID, subscriptionID string) (*cancelLinkResponse, error)
}

// SubscriptionHandler は購読管理のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// subscriptionRequest は購読の登録・更新リクエストのボディ。
type subscriptionRequest struct {
	Name                 string   `json:"name"`
	Category             string   `json:"category"`
	SecondaryCategory    *string  `json:"secondary_category"`
	MonthlyCost          *float64 `json:"monthly_cost"`
	UsageFrequency       string   `json:"usage_frequency"`
	Importance           string   `json:"importance"`
	BillingCycle         string   `json:"billing_cycle"`
	UsageScope           string   `json:"usage_scope"`
	CancellationFriction *string  `json:"cancellation_friction"`
	RenewalDate          *string  `json:"renewal_date"`
	TrialEndDate         *string  `json:"trial_end_date"`
	Notes                string   `json:"notes"`
}

// toInput はリクエストをサービス層の入力値に変換する。
// 列挙値の妥当性はサービス層で検証する。
func (req subscriptionRequest) toInput() (subscription.Input, error) {
	if req.MonthlyCost == nil {
		return subscription.Input{}, model.NewValidationError("monthly_cost", "金額を入力してください")
	}
	renewal, err := parseDate("renewal_date", req.RenewalDate)
	if err != nil {
		return subscription.Input{}, err
	}
	trialEnd, err := parseDate("trial_end_date", req.TrialEndDate)
	if err != nil {
		return subscription.Input{}, err
	}

	in := subscription.Input{
		Name:              req.Name,
		Category:          req.Category,
		SecondaryCategory: req.SecondaryCategory,
		MonthlyCost:       *req.MonthlyCost,
		UsageFrequency:    model.UsageFrequency(req.UsageFrequency),
		Importance:        model.Importance(req.Importance),
		BillingCycle:      model.BillingCycle(req.BillingCycle),
		UsageScope:        model.UsageScope(req.UsageScope),
		RenewalDate:       renewal,
		TrialEndDate:      trialEnd,
		Notes:             req.Notes,
	}
	if req.CancellationFriction != nil && *req.CancellationFriction != "" {
		f := model.CancellationFriction(*req.CancellationFriction)
		in.CancellationFriction = &f
	}
	return in, nil
}

// subscriptionResponse は購読情報のAPIレスポンス。
type subscriptionResponse struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	Category             string            `json:"category"`
	SecondaryCategory    *string           `json:"secondary_category,omitempty"`
	MonthlyCost          float64           `json:"monthly_cost"`
	NormalizedMonthly    float64           `json:"normalized_monthly_cost"`
	UsageFrequency       string            `json:"usage_frequency"`
	Importance           string            `json:"importance"`
	BillingCycle         string            `json:"billing_cycle"`
	UsageScope           string            `json:"usage_scope"`
	CancellationFriction *string           `json:"cancellation_friction,omitempty"`
	RenewalDate          *time.Time        `json:"renewal_date,omitempty"`
	TrialEndDate         *time.Time        `json:"trial_end_date,omitempty"`
	Notes                string            `json:"notes"`
	ROIScore             int               `json:"roi_score"`
	Breakdown            breakdownResponse `json:"breakdown"`
	Status               string            `json:"status"`
	Recommendation       string            `json:"recommendation"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// breakdownResponse はROIスコアを構成する4つのサブスコア。
type breakdownResponse struct {
	UsageValue           int `json:"usage_value"`
	CostEfficiency       int `json:"cost_efficiency"`
	ReplacementRisk      int `json:"replacement_risk"`
	CancellationFriction int `json:"cancellation_friction"`
}

// cancelLinkResponse は解約リンクのAPIレスポンス。
// 一致するベンダーがない場合はFoundがfalseになる。
type cancelLinkResponse struct {
	Found       bool   `json:"found"`
	VendorID    string `json:"vendor_id,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	Confidence  string `json:"confidence,omitempty"`
	AskFeedback bool   `json:"ask_feedback"`
}

// List はユーザーの購読一覧を取得する。
// GET /api/subscriptions
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subs, err := h.service.List(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// Create は購読を登録する。
// POST /api/subscriptions
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	sub, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Get は購読を1件取得する。
// GET /api/subscriptions/{id}
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Update は購読の入力値を更新する。
// PUT /api/subscriptions/{id}
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	sub, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Delete は購読を削除する。
// DELETE /api/subscriptions/{id}
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelLink は購読の解約リンクを取得する。
// GET /api/subscriptions/{id}/cancel-link
func (h *SubscriptionHandler) CancelLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	link, err := h.service.CancelLink(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// SetupSubscriptionRoutes は購読管理関連のルーティングを設定したchi.Routerを返す。
func SetupSubscriptionRoutes(service SubscriptionServiceInterface) http.Handler {
	r := chi.NewRouter()
	mountSubscriptionRoutes(r, NewSubscriptionHandler(service))
	return r
}

func mountSubscriptionRoutes(r chi.Router, h *SubscriptionHandler) {
	r.Route("/api/subscriptions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/cancel-link", h.CancelLink)
		})
	})
}
