// Package model はドメインモデルを定義する。
package model

import "time"

// ActionItem はスコアリング済みの購読から導出される対応タスク。
// 永続化されず、購読一覧とスヌーズ状態から都度再生成される。
// IDは(種別, 購読ID)から決定的に生成されるため、再生成しても同じ値になる。
type ActionItem struct {
	ID               string
	Type             ActionType
	Priority         Priority
	SubscriptionID   string
	SubscriptionName string
	Title            string
	Description      string
	PotentialSavings *float64 // 月額換算の節約見込み
	DueDate          *time.Time
}

// ActionType はアクション種別。
type ActionType string

const (
	ActionCancel          ActionType = "cancel"
	ActionDowngrade       ActionType = "downgrade"
	ActionReview          ActionType = "review"
	ActionTrialEnding     ActionType = "trial_ending"
	ActionRenewalReminder ActionType = "renewal_reminder"
)

// Priority はアクションの優先度。
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank は並び替え用の順位を返す。小さいほど優先度が高い。
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}
