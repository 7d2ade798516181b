package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/subsense/internal/middleware"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	Summary(ctx context.Context, userID string) (*summaryResponse, error)
}

// DashboardHandler はダッシュボード集計のHTTPハンドラー。
type DashboardHandler struct {
	service DashboardServiceInterface
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// summaryResponse はダッシュボード集計のAPIレスポンス。
type summaryResponse struct {
	SubscriptionCount       int            `json:"subscription_count"`
	TotalMonthlySpend       float64        `json:"total_monthly_spend"`
	PotentialMonthlySavings float64        `json:"potential_monthly_savings"`
	AverageScore            float64        `json:"average_score"`
	StatusCounts            map[string]int `json:"status_counts"`
	OpenActionCount         int            `json:"open_action_count"`
}

// Summary はダッシュボードの集計値を取得する。
// GET /api/dashboard/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func mountDashboardRoutes(r chi.Router, h *DashboardHandler) {
	r.Get("/api/dashboard/summary", h.Summary)
}
