// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, subscription, vendor, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation            = "VALIDATION_FAILED"
	ErrCodeSubscriptionNotFound  = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeDuplicateSubscription = "DUPLICATE_SUBSCRIPTION"
	ErrCodeSubscriptionLimit     = "SUBSCRIPTION_LIMIT"
	ErrCodeInvalidActionID       = "INVALID_ACTION_ID"
	ErrCodeVendorNotFound        = "VENDOR_NOT_FOUND"
	ErrCodeDuplicateVendor       = "DUPLICATE_VENDOR"
	ErrCodeInvalidCancelURL      = "INVALID_CANCEL_URL"
	ErrCodeCancelURLUnreachable  = "CANCEL_URL_UNREACHABLE"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeCSRF                  = "CSRF_VALIDATION_FAILED"
	ErrCodeRateLimited           = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(subscriptionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("指定された購読が見つかりません: %s", subscriptionID),
		Category: "subscription",
		Action:   "購読IDを確認してください。",
	}
}

// NewDuplicateSubscriptionNameError は同名の購読が既に存在する場合のエラーを生成する。
// 名前の比較は大文字小文字を区別しない。
func NewDuplicateSubscriptionNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSubscription,
		Message:  fmt.Sprintf("同じ名前の購読が既に登録されています: %s", name),
		Category: "subscription",
		Action:   "購読一覧から該当サービスを確認してください。",
	}
}

// NewSubscriptionLimitError は無料プランの購読上限エラーを生成する。
func NewSubscriptionLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionLimit,
		Message:  fmt.Sprintf("無料プランの購読数が上限（%d件）に達しています。", limit),
		Category: "subscription",
		Action:   "不要な購読を削除するか、Proプランにアップグレードしてください。",
	}
}

// NewInvalidActionIDError はアクションIDの形式が不正な場合のエラーを生成する。
func NewInvalidActionIDError(actionID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidActionID,
		Message:  fmt.Sprintf("無効なアクションIDです: %s", actionID),
		Category: "validation",
		Action:   "アクション一覧を再読み込みしてください。",
	}
}

// NewVendorNotFoundError はベンダーが見つからない場合のエラーを生成する。
func NewVendorNotFoundError(vendorID string) *APIError {
	return &APIError{
		Code:     ErrCodeVendorNotFound,
		Message:  fmt.Sprintf("指定されたベンダーが見つかりません: %s", vendorID),
		Category: "vendor",
		Action:   "ベンダーIDを確認してください。",
	}
}

// NewDuplicateVendorError は同名のベンダーが既に存在する場合のエラーを生成する。
func NewDuplicateVendorError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateVendor,
		Message:  fmt.Sprintf("このベンダーは既に登録されています: %s", name),
		Category: "vendor",
		Action:   "既存の解約リンクにフィードバックを送信してください。",
	}
}

// NewInvalidCancelURLError は解約リンクURLが不正な場合のエラーを生成する。
func NewInvalidCancelURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCancelURL,
		Message:  fmt.Sprintf("無効な解約リンクです: %s", reason),
		Category: "validation",
		Action:   "公開されているWebサイトのURL（http:// または https://）を入力してください。",
	}
}

// NewCancelURLUnreachableError は解約リンクに到達できない場合のエラーを生成する。
func NewCancelURLUnreachableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeCancelURLUnreachable,
		Message:  fmt.Sprintf("解約リンクにアクセスできませんでした: %s", reason),
		Category: "vendor",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnauthorizedError は未認証またはセッション切れの場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewCSRFError はCSRFトークン検証に失敗した場合のエラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitError はレート制限を超えた場合のエラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーのユーザー向け表現を生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
