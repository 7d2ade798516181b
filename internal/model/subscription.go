// Package model はドメインモデルを定義する。
package model

import "time"

// Subscription はユーザーが契約している有料サービスを表す。
// ROIScoreとStatusは派生値であり、スコアリング入力を書き込むたびに
// リポジトリ層で再計算される。呼び出し側が直接設定した値は保存されない。
type Subscription struct {
	ID                   string
	UserID               string
	Name                 string
	Category             string
	SecondaryCategory    *string
	MonthlyCost          float64 // 入力値そのまま。意味はBillingCycleで決まる
	UsageFrequency       UsageFrequency
	Importance           Importance
	BillingCycle         BillingCycle
	UsageScope           UsageScope
	CancellationFriction *CancellationFriction
	RenewalDate          *time.Time
	TrialEndDate         *time.Time
	Notes                string
	ROIScore             int
	Status               SubscriptionStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// UsageFrequency は利用頻度を表す。
type UsageFrequency string

const (
	UsageDaily   UsageFrequency = "daily"
	UsageWeekly  UsageFrequency = "weekly"
	UsageMonthly UsageFrequency = "monthly"
	UsageRare    UsageFrequency = "rare"
)

// Valid は定義済みの値かどうかを返す。
func (u UsageFrequency) Valid() bool {
	switch u {
	case UsageDaily, UsageWeekly, UsageMonthly, UsageRare:
		return true
	}
	return false
}

// Importance はユーザーにとっての重要度を表す。
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Valid は定義済みの値かどうかを返す。
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}

// BillingCycle はMonthlyCostが表す請求期間。
type BillingCycle string

const (
	BillingMonthly   BillingCycle = "monthly"
	BillingAnnual    BillingCycle = "annual"
	BillingQuarterly BillingCycle = "quarterly"
	BillingTrial     BillingCycle = "trial"
)

// Valid は定義済みの値かどうかを返す。
func (b BillingCycle) Valid() bool {
	switch b {
	case BillingMonthly, BillingAnnual, BillingQuarterly, BillingTrial:
		return true
	}
	return false
}

// UsageScope は費用を分担する利用者の範囲。
type UsageScope string

const (
	ScopePersonal UsageScope = "personal"
	ScopeTeam     UsageScope = "team"
	ScopeFamily   UsageScope = "family"
)

// Valid は定義済みの値かどうかを返す。
func (s UsageScope) Valid() bool {
	switch s {
	case ScopePersonal, ScopeTeam, ScopeFamily:
		return true
	}
	return false
}

// CancellationFriction はユーザー申告の解約難易度。
type CancellationFriction string

const (
	FrictionEasy     CancellationFriction = "easy"
	FrictionModerate CancellationFriction = "moderate"
	FrictionPainful  CancellationFriction = "painful"
)

// Valid は定義済みの値かどうかを返す。
func (c CancellationFriction) Valid() bool {
	switch c {
	case FrictionEasy, FrictionModerate, FrictionPainful:
		return true
	}
	return false
}

// SubscriptionStatus はROIスコアから導出される健全性ラベル。
type SubscriptionStatus string

const (
	StatusGood   SubscriptionStatus = "good"
	StatusReview SubscriptionStatus = "review"
	StatusCut    SubscriptionStatus = "cut"
)

// Recommendation はROIスコアから導出される推奨アクション。
type Recommendation string

const (
	RecommendKeep      Recommendation = "keep"
	RecommendDowngrade Recommendation = "downgrade"
	RecommendCancel    Recommendation = "cancel"
)
