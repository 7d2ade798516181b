package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はユーザー入力のプレーンテキストからマークアップを除去する。
// 購読名やメモは画面にそのまま表示されるため、保存前に適用する。
type TextSanitizerService interface {
	// SanitizeText は全てのタグを除去し、前後の空白を取り除いた文字列を返す。
	// エンティティはデコードされるため、"AT&T" はそのまま保たれる。
	SanitizeText(raw string) string
}

// textSanitizer はbluemondayのStrictPolicyを使う実装。ポリシーはスレッドセーフ。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText は全てのタグを除去する。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
