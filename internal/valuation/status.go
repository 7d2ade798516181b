package valuation

import "github.com/hitoshi/subsense/internal/model"

// 健全性ラベルと推奨アクションで共有する閾値。
// 両者は同じ境界を別の語彙で表すため、必ずこの定数を参照すること。
const (
	GoodThreshold   = 75
	ReviewThreshold = 40
)

// StatusFromScore はスコアから健全性ラベルを返す。
func StatusFromScore(score int) model.SubscriptionStatus {
	switch {
	case score >= GoodThreshold:
		return model.StatusGood
	case score >= ReviewThreshold:
		return model.StatusReview
	default:
		return model.StatusCut
	}
}

// RecommendationFromScore はスコアから推奨アクションを返す。
func RecommendationFromScore(score int) model.Recommendation {
	switch {
	case score >= GoodThreshold:
		return model.RecommendKeep
	case score >= ReviewThreshold:
		return model.RecommendDowngrade
	default:
		return model.RecommendCancel
	}
}
