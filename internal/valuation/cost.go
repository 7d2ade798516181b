package valuation

import "github.com/hitoshi/subsense/internal/model"

// 利用範囲ごとの費用分担人数。
const (
	personalSharingUsers = 1
	familySharingUsers   = 4
	teamSharingUsers     = 5
)

// NormalizeToMonthlyCost は請求期間の金額を月額換算する。
// トライアル中は実費が発生していないため0とする。
func NormalizeToMonthlyCost(rawCost float64, cycle model.BillingCycle) float64 {
	switch cycle {
	case model.BillingAnnual:
		return rawCost / 12
	case model.BillingQuarterly:
		return rawCost / 3
	case model.BillingTrial:
		return 0
	default:
		return rawCost
	}
}

// SharingUsers は利用範囲から費用を分担する人数を返す。
func SharingUsers(scope model.UsageScope) int {
	switch scope {
	case model.ScopeTeam:
		return teamSharingUsers
	case model.ScopeFamily:
		return familySharingUsers
	default:
		return personalSharingUsers
	}
}

// AdjustForUsageScope は月額を分担人数で割った1人あたりの費用を返す。
func AdjustForUsageScope(monthlyCost float64, scope model.UsageScope) float64 {
	return monthlyCost / float64(SharingUsers(scope))
}

// EffectiveMonthlyCost は請求期間と利用範囲を考慮した1人あたりの月額を返す。
func EffectiveMonthlyCost(rawCost float64, cycle model.BillingCycle, scope model.UsageScope) float64 {
	return AdjustForUsageScope(NormalizeToMonthlyCost(rawCost, cycle), scope)
}
