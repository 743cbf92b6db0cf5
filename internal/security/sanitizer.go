package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizer はユーザー入力タイトルのサニタイズ機能のインターフェースを定義する。
type TitleSanitizer interface {
	// Sanitize はタイトルからHTMLタグ・スクリプトを除去し、
	// 前後の空白をトリムした文字列を返す。
	Sanitize(title string) string
}

// titleSanitizer はTitleSanitizerの実装。
// bluemondayのStrictPolicyを使用して全てのHTML要素を除去する。
type titleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer はTitleSanitizerの新しいインスタンスを生成する。
func NewTitleSanitizer() *titleSanitizer {
	return &titleSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタイトルからHTMLタグ・スクリプトを除去する。
func (s *titleSanitizer) Sanitize(title string) string {
	sanitized := s.policy.Sanitize(title)
	return strings.TrimSpace(sanitized)
}

// compile-time interface check
var _ TitleSanitizer = (*titleSanitizer)(nil)
