// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Planは決済基盤から同期される契約プランで、機能の利用可否のみを左右する。
type User struct {
	ID        string
	Email     string
	Name      string
	Plan      Plan
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan は契約プラン。
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// IsPro はProプランの権利を持つかどうかを返す。
func (u *User) IsPro() bool {
	return u.Plan == PlanPro
}

// Session はユーザーのログインセッションを表す。
// セッションは外部の認証基盤が発行し、本サービスは検証のみ行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
