// Package action はスコアリング済みの購読から優先度付きの対応タスクを生成する。
// I/Oを持たない純粋な処理であり、スヌーズ状態は述語として外部から受け取る。
package action

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/subsense/internal/model"
)

const (
	// cancelHighPriorityCost を超える月額の解約候補は優先度highとする。
	cancelHighPriorityCost = 30.0
	// reviewSavingsRatio は見直し時の節約見込み（解約ではなく格下げを想定）。
	reviewSavingsRatio = 0.5
	// downgradeMinCost を超える月額の購読のみ格下げを提案する。
	downgradeMinCost = 40.0
	// renewalReminderMinCost を超える月額なら状態がgoodでも更新を通知する。
	renewalReminderMinCost = 20.0

	// reminderWindowDays 以内に期日を迎えるものを通知対象とする。
	reminderWindowDays = 7
	// trialUrgentDays 以内に終了するトライアルは優先度highとする。
	trialUrgentDays = 3
)

// Kind はアクションIDの種別部分。ActionTypeに加えて期限切れトライアルを区別する。
type Kind string

const (
	KindCancel          Kind = Kind(model.ActionCancel)
	KindDowngrade       Kind = Kind(model.ActionDowngrade)
	KindReview          Kind = Kind(model.ActionReview)
	KindTrialEnding     Kind = Kind(model.ActionTrialEnding)
	KindTrialExpired    Kind = "trial_expired"
	KindRenewalReminder Kind = Kind(model.ActionRenewalReminder)
)

const idSeparator = ":"

// ID は(種別, 購読ID)から決定的なアクションIDを生成する。
// 再生成しても同じIDになるため、スヌーズ状態が再スキャン後も維持される。
func ID(kind Kind, subscriptionID string) string {
	return string(kind) + idSeparator + subscriptionID
}

// ParseID はアクションIDを種別と購読IDに分解する。
func ParseID(id string) (Kind, string, bool) {
	k, subID, ok := strings.Cut(id, idSeparator)
	if !ok || subID == "" {
		return "", "", false
	}
	switch Kind(k) {
	case KindCancel, KindDowngrade, KindReview, KindTrialEnding, KindTrialExpired, KindRenewalReminder:
		return Kind(k), subID, true
	}
	return "", "", false
}

// Generate は購読一覧からアクションを生成し、優先度順に並べて返す。
// 各ルールは購読ごとに独立に評価されるため、1件の購読から複数のアクションが出ることがある。
//
// 前提条件: 日付フィールドは呼び出し側で正しくパース済みであること。
func Generate(subs []model.Subscription, now time.Time) []model.ActionItem {
	items := make([]model.ActionItem, 0)
	for i := range subs {
		sub := &subs[i]
		for _, rule := range rules {
			if item, ok := rule(sub, now); ok {
				items = append(items, item)
			}
		}
	}
	SortItems(items)
	return items
}

// FilterSnoozed はスヌーズ中のアクションを除外する。
func FilterSnoozed(items []model.ActionItem, isSnoozed func(id string) bool) []model.ActionItem {
	if isSnoozed == nil {
		return items
	}
	filtered := make([]model.ActionItem, 0, len(items))
	for _, item := range items {
		if isSnoozed(item.ID) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

// SortItems は優先度の高い順、同じ優先度では節約見込みの大きい順に安定ソートする。
// 節約見込みがないものは0として扱う。
func SortItems(items []model.ActionItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Priority.Rank(), items[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return savingsOf(items[i]) > savingsOf(items[j])
	})
}

func savingsOf(item model.ActionItem) float64 {
	if item.PotentialSavings == nil {
		return 0
	}
	return *item.PotentialSavings
}

type rule func(sub *model.Subscription, now time.Time) (model.ActionItem, bool)

var rules = []rule{
	cancelRule,
	reviewRule,
	trialRule,
	renewalRule,
	downgradeRule,
}

func cancelRule(sub *model.Subscription, _ time.Time) (model.ActionItem, bool) {
	if sub.Status != model.StatusCut {
		return model.ActionItem{}, false
	}
	priority := model.PriorityMedium
	if sub.MonthlyCost > cancelHighPriorityCost {
		priority = model.PriorityHigh
	}
	return model.ActionItem{
		ID:               ID(KindCancel, sub.ID),
		Type:             model.ActionCancel,
		Priority:         priority,
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Title:            fmt.Sprintf("%sの解約を検討", sub.Name),
		Description:      fmt.Sprintf("ROIスコアが%dと低く、費用に見合う価値が得られていません。", sub.ROIScore),
		PotentialSavings: floatPtr(sub.MonthlyCost),
	}, true
}

func reviewRule(sub *model.Subscription, _ time.Time) (model.ActionItem, bool) {
	if sub.Status != model.StatusReview {
		return model.ActionItem{}, false
	}
	if sub.UsageFrequency != model.UsageRare && sub.UsageFrequency != model.UsageMonthly {
		return model.ActionItem{}, false
	}
	return model.ActionItem{
		ID:               ID(KindReview, sub.ID),
		Type:             model.ActionReview,
		Priority:         model.PriorityMedium,
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Title:            fmt.Sprintf("%sの利用状況を見直す", sub.Name),
		Description:      "利用頻度が低いため、プランの格下げや代替サービスを検討してください。",
		PotentialSavings: floatPtr(sub.MonthlyCost * reviewSavingsRatio),
	}, true
}

func trialRule(sub *model.Subscription, now time.Time) (model.ActionItem, bool) {
	if sub.BillingCycle != model.BillingTrial || sub.TrialEndDate == nil {
		return model.ActionItem{}, false
	}
	d := daysUntil(*sub.TrialEndDate, now)
	switch {
	case d <= 0:
		return model.ActionItem{
			ID:               ID(KindTrialExpired, sub.ID),
			Type:             model.ActionTrialEnding,
			Priority:         model.PriorityHigh,
			SubscriptionID:   sub.ID,
			SubscriptionName: sub.Name,
			Title:            fmt.Sprintf("%sのトライアルが終了しました", sub.Name),
			Description:      "有料プランに移行していないか確認し、継続しない場合は解約してください。",
			PotentialSavings: floatPtr(sub.MonthlyCost),
			DueDate:          timePtr(*sub.TrialEndDate),
		}, true
	case d <= reminderWindowDays:
		priority := model.PriorityMedium
		if d <= trialUrgentDays {
			priority = model.PriorityHigh
		}
		return model.ActionItem{
			ID:               ID(KindTrialEnding, sub.ID),
			Type:             model.ActionTrialEnding,
			Priority:         priority,
			SubscriptionID:   sub.ID,
			SubscriptionName: sub.Name,
			Title:            fmt.Sprintf("%sのトライアルがあと%d日で終了します", sub.Name, d),
			Description:      "継続するかどうかを終了日までに決めてください。",
			PotentialSavings: floatPtr(sub.MonthlyCost),
			DueDate:          timePtr(*sub.TrialEndDate),
		}, true
	}
	return model.ActionItem{}, false
}

func renewalRule(sub *model.Subscription, now time.Time) (model.ActionItem, bool) {
	if sub.RenewalDate == nil || sub.BillingCycle == model.BillingTrial {
		return model.ActionItem{}, false
	}
	d := daysUntil(*sub.RenewalDate, now)
	if d <= 0 || d > reminderWindowDays {
		return model.ActionItem{}, false
	}
	if sub.Status == model.StatusGood && sub.MonthlyCost <= renewalReminderMinCost {
		return model.ActionItem{}, false
	}
	priority := model.PriorityLow
	if sub.Status == model.StatusCut {
		priority = model.PriorityHigh
	}
	return model.ActionItem{
		ID:               ID(KindRenewalReminder, sub.ID),
		Type:             model.ActionRenewalReminder,
		Priority:         priority,
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Title:            fmt.Sprintf("%sがあと%d日で更新されます", sub.Name, d),
		Description:      "更新前に継続するかどうかを確認してください。",
		DueDate:          timePtr(*sub.RenewalDate),
	}, true
}

func downgradeRule(sub *model.Subscription, _ time.Time) (model.ActionItem, bool) {
	if sub.MonthlyCost <= downgradeMinCost || sub.Status != model.StatusReview {
		return model.ActionItem{}, false
	}
	suggestion, ok := LookupDowngrade(sub.Name)
	if !ok {
		return model.ActionItem{}, false
	}
	return model.ActionItem{
		ID:               ID(KindDowngrade, sub.ID),
		Type:             model.ActionDowngrade,
		Priority:         model.PriorityMedium,
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Title:            fmt.Sprintf("%sのプランを見直す", sub.Name),
		Description:      suggestion.Suggestion,
		PotentialSavings: floatPtr(suggestion.EstimatedSavings),
	}, true
}

// daysUntil は期日までの日数を切り上げで返す。期日を過ぎていれば0以下になる。
func daysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }
