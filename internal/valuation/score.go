package valuation

import (
	"math"

	"github.com/hitoshi/subsense/internal/model"
)

// 集計時の各サブスコアの重み。
const (
	usageValueWeight           = 0.40
	costEfficiencyWeight       = 0.35
	replacementRiskWeight      = 0.15
	cancellationFrictionWeight = 0.10

	// trialDampening はトライアル中の購読に掛ける係数。
	trialDampening = 0.75

	// valueExtractedScale はコスト負担を相殺する利用価値の基準値。
	valueExtractedScale = 150.0
)

var usageBase = map[model.UsageFrequency]float64{
	model.UsageDaily:   100,
	model.UsageWeekly:  70,
	model.UsageMonthly: 40,
	model.UsageRare:    15,
}

var importanceMultiplier = map[model.Importance]float64{
	model.ImportanceHigh:   1.0,
	model.ImportanceMedium: 0.75,
	model.ImportanceLow:    0.5,
}

var frictionOverride = map[model.CancellationFriction]int{
	model.FrictionEasy:     20,
	model.FrictionModerate: 60,
	model.FrictionPainful:  100,
}

// Input はROIスコア計算の入力。
// 列挙値の妥当性とCostが正であることは呼び出し側で検証済みとする。
type Input struct {
	UsageFrequency    model.UsageFrequency
	Importance        model.Importance
	Cost              float64 // 請求期間あたりの金額
	Category          string
	SecondaryCategory *string
	BillingCycle      model.BillingCycle
	UsageScope        model.UsageScope
	Friction          *model.CancellationFriction // ユーザー申告値。nilなら算出する
}

// InputFromSubscription は購読レコードからスコア計算の入力を組み立てる。
func InputFromSubscription(sub *model.Subscription) Input {
	return Input{
		UsageFrequency:    sub.UsageFrequency,
		Importance:        sub.Importance,
		Cost:              sub.MonthlyCost,
		Category:          sub.Category,
		SecondaryCategory: sub.SecondaryCategory,
		BillingCycle:      sub.BillingCycle,
		UsageScope:        sub.UsageScope,
		Friction:          sub.CancellationFriction,
	}
}

// Breakdown は4つのサブスコア。いずれも0〜100。
type Breakdown struct {
	UsageValue           int
	CostEfficiency       int
	ReplacementRisk      int
	CancellationFriction int
}

// Assessment はスコアリング結果一式。
type Assessment struct {
	Score                int
	Status               model.SubscriptionStatus
	Recommendation       model.Recommendation
	Breakdown            Breakdown
	EffectiveMonthlyCost float64
}

// Assess はROIスコア、サブスコア、分類をまとめて計算する。
func Assess(in Input) Assessment {
	effectiveCost := EffectiveMonthlyCost(in.Cost, in.BillingCycle, in.UsageScope)
	profile := BlendNames(in.Category, in.SecondaryCategory)

	base := usageBase[in.UsageFrequency]
	importance := importanceMultiplier[in.Importance]

	b := Breakdown{
		UsageValue:           usageValue(base, importance, profile),
		CostEfficiency:       costEfficiency(effectiveCost, base, importance, profile),
		ReplacementRisk:      replacementRisk(importance, profile),
		CancellationFriction: cancellationFriction(base, importance, in.Friction),
	}

	roi := float64(b.UsageValue)*usageValueWeight +
		float64(b.CostEfficiency)*costEfficiencyWeight +
		float64(b.ReplacementRisk)*replacementRiskWeight +
		float64(b.CancellationFriction)*cancellationFrictionWeight

	if in.BillingCycle == model.BillingTrial {
		roi *= trialDampening
	}

	score := int(math.Round(clamp(roi, 0, 100)))

	return Assessment{
		Score:                score,
		Status:               StatusFromScore(score),
		Recommendation:       RecommendationFromScore(score),
		Breakdown:            b,
		EffectiveMonthlyCost: effectiveCost,
	}
}

// CalculateROIScore は0〜100の整数ROIスコアを返す。
func CalculateROIScore(in Input) int {
	return Assess(in).Score
}

// AssessSubscription は購読レコードを評価する。
func AssessSubscription(sub *model.Subscription) Assessment {
	return Assess(InputFromSubscription(sub))
}

func usageValue(base, importance float64, p Profile) int {
	return int(math.Min(100, math.Round(base*importance*p.ValueMultiplier)))
}

// costEfficiency は同じ金額でも利用価値が高ければ効率的とみなす。
// コスト単体ではなく、利用価値との相互作用を評価する。
func costEfficiency(effectiveCost, base, importance float64, p Profile) int {
	costPosition := math.Min(100, effectiveCost/p.HighCost*100)
	valueExtracted := base * importance
	costBurden := costPosition * (1 - valueExtracted/valueExtractedScale)
	return int(clamp(math.Round(100-costBurden), 0, 100))
}

func replacementRisk(importance float64, p Profile) int {
	return int(clamp(math.Round(importance*100*p.LockInFactor), 0, 100))
}

func cancellationFriction(base, importance float64, override *model.CancellationFriction) int {
	if override != nil {
		if v, ok := frictionOverride[*override]; ok {
			return v
		}
	}
	computed := math.Round(importance*55 + (base/100)*45)
	return int(clamp(computed, 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
