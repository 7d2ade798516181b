package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/subsense/internal/middleware"
)

// ActionServiceInterface はアクションハンドラーが必要とするサービスインターフェース。
type ActionServiceInterface interface {
	// ActionItems はスヌーズ中を除いた優先度順のアクション一覧を返す。
	ActionItems(ctx context.Context, userID string) ([]actionItemResponse, error)
	// Snooze はアクションを指定日数スヌーズし、解除予定時刻を返す。
	// daysが0以下なら既定日数を使う。
	Snooze(ctx context.Context, userID, actionID string, days int) (time.Time, error)
	// Unsnooze はスヌーズを解除する。
	Unsnooze(ctx context.Context, userID, actionID string) error
}

// ActionHandler はアクション一覧とスヌーズのHTTPハンドラー。
type ActionHandler struct {
	service ActionServiceInterface
}

// NewActionHandler はActionHandlerを生成する。
func NewActionHandler(service ActionServiceInterface) *ActionHandler {
	return &ActionHandler{service: service}
}

// actionItemResponse はアクションのAPIレスポンス。
type actionItemResponse struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Priority         string     `json:"priority"`
	SubscriptionID   string     `json:"subscription_id"`
	SubscriptionName string     `json:"subscription_name"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	PotentialSavings *float64   `json:"potential_savings,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
}

// snoozeRequest はスヌーズリクエストのボディ。ボディ自体を省略してもよい。
type snoozeRequest struct {
	Days int `json:"days"`
}

// snoozeResponse はスヌーズ結果のAPIレスポンス。
type snoozeResponse struct {
	ActionID     string    `json:"action_id"`
	SnoozedUntil time.Time `json:"snoozed_until"`
}

// List はアクション一覧を取得する。
// GET /api/actions
func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ActionItems(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Snooze はアクションをスヌーズする。
// POST /api/actions/{id}/snooze
func (h *ActionHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req snoozeRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	actionID := chi.URLParam(r, "id")
	until, err := h.service.Snooze(r.Context(), userID, actionID, req.Days)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snoozeResponse{ActionID: actionID, SnoozedUntil: until})
}

// Unsnooze はスヌーズを解除する。
// DELETE /api/actions/{id}/snooze
func (h *ActionHandler) Unsnooze(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unsnooze(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mountActionRoutes(r chi.Router, h *ActionHandler) {
	r.Route("/api/actions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/{id}/snooze", h.Snooze)
		r.Delete("/{id}/snooze", h.Unsnooze)
	})
}
