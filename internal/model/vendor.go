// Package model はドメインモデルを定義する。
package model

import "time"

// Vendor はクラウドソースの解約リンクを持つサービス提供元を表す。
// Confidenceは全フィードバックから再計算される派生値で、直接編集されない。
type Vendor struct {
	ID             string
	Name           string
	Domain         string
	CancelURL      string
	FallbackURL    string // 公式ヘルプページ等。信頼度が低い場合に提示する
	Confidence     VendorConfidence
	SuccessCount   int
	FailCount      int
	SkipCount      int
	LastVerifiedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VendorConfidence は解約リンクの信頼度。
type VendorConfidence string

const (
	ConfidenceHigh   VendorConfidence = "high"
	ConfidenceMedium VendorConfidence = "medium"
	ConfidenceLow    VendorConfidence = "low"
)

// FeedbackOutcome は解約リンク利用結果のフィードバック。
type FeedbackOutcome string

const (
	OutcomeSuccess FeedbackOutcome = "success"
	OutcomeFail    FeedbackOutcome = "fail"
	OutcomeSkip    FeedbackOutcome = "skip"
)

// Valid は定義済みの値かどうかを返す。
func (o FeedbackOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFail, OutcomeSkip:
		return true
	}
	return false
}

// VendorFeedback は1件のフィードバックイベント。
type VendorFeedback struct {
	ID        string
	VendorID  string
	UserID    string
	Outcome   FeedbackOutcome
	CreatedAt time.Time
}

// FeedbackCounts はベンダーごとの結果別フィードバック件数。
type FeedbackCounts struct {
	SuccessCount int
	FailCount    int
	SkipCount    int
}
