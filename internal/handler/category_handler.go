package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/subsense/internal/valuation"
)

// categoryResponse はカテゴリ選択肢と評価に使われる定数。
type categoryResponse struct {
	Name            string  `json:"name"`
	ValueMultiplier float64 `json:"value_multiplier"`
	TypicalCost     float64 `json:"typical_cost"`
	HighCost        float64 `json:"high_cost"`
	LockInFactor    float64 `json:"lock_in_factor"`
}

// ListCategories は購読登録フォーム用のカテゴリ一覧を返す。
// GET /api/categories
func ListCategories(w http.ResponseWriter, r *http.Request) {
	names := valuation.CategoryNames()
	resp := make([]categoryResponse, 0, len(names))
	for _, name := range names {
		p := valuation.ParseCategory(name).Profile()
		resp = append(resp, categoryResponse{
			Name:            name,
			ValueMultiplier: p.ValueMultiplier,
			TypicalCost:     p.TypicalCost,
			HighCost:        p.HighCost,
			LockInFactor:    p.LockInFactor,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func mountCategoryRoutes(r chi.Router) {
	r.Get("/api/categories", ListCategories)
}
