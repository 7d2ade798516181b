package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/subsense/internal/middleware"
	"github.com/hitoshi/subsense/internal/model"
)

// VendorServiceInterface はベンダーハンドラーが必要とするサービスインターフェース。
type VendorServiceInterface interface {
	List(ctx context.Context) ([]vendorResponse, error)
	Get(ctx context.Context, vendorID string) (*vendorResponse, error)
	// Submit は解約リンクの到達確認を行ってからベンダーを登録する。
	Submit(ctx context.Context, name, cancelURL, fallbackURL string) (*vendorResponse, error)
	// RecordFeedback は解約リンク利用結果を記録し、再計算後のベンダーを返す。
	RecordFeedback(ctx context.Context, userID, vendorID string, outcome model.FeedbackOutcome) (*vendorResponse, error)
}

// VendorHandler はベンダーと解約リンクのHTTPハンドラー。
type VendorHandler struct {
	service VendorServiceInterface
}

// NewVendorHandler はVendorHandlerを生成する。
func NewVendorHandler(service VendorServiceInterface) *VendorHandler {
	return &VendorHandler{service: service}
}

// vendorResponse はベンダー情報のAPIレスポンス。
type vendorResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Domain         string     `json:"domain"`
	CancelURL      string     `json:"cancel_url"`
	FallbackURL    string     `json:"fallback_url,omitempty"`
	Confidence     string     `json:"confidence"`
	SuccessCount   int        `json:"success_count"`
	FailCount      int        `json:"fail_count"`
	SkipCount      int        `json:"skip_count"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
}

type vendorSubmitRequest struct {
	Name        string `json:"name"`
	CancelURL   string `json:"cancel_url"`
	FallbackURL string `json:"fallback_url"`
}

type vendorFeedbackRequest struct {
	Outcome string `json:"outcome"`
}

// List はベンダー一覧を取得する。
// GET /api/vendors
func (h *VendorHandler) List(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

// Get はベンダーを1件取得する。
// GET /api/vendors/{id}
func (h *VendorHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Submit はベンダーと解約リンクを投稿する。
// POST /api/vendors
func (h *VendorHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req vendorSubmitRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	v, err := h.service.Submit(r.Context(), req.Name, req.CancelURL, req.FallbackURL)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Feedback は解約リンク利用結果を記録する。
// POST /api/vendors/{id}/feedback
func (h *VendorHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req vendorFeedbackRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	v, err := h.service.RecordFeedback(r.Context(), userID, chi.URLParam(r, "id"), model.FeedbackOutcome(req.Outcome))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// mountVendorRoutes はベンダー関連のルートを登録する。
// limitは投稿とフィードバックにだけ掛ける追加のミドルウェアで、nilでもよい。
func mountVendorRoutes(r chi.Router, h *VendorHandler, limit func(http.Handler) http.Handler) {
	r.Route("/api/vendors", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Post("/", h.Submit)
			r.Post("/{id}/feedback", h.Feedback)
		})
	})
}
