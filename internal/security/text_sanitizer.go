// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はプロバイダ由来のテキスト（タイトル・あらすじ）から
// マークアップを除去する。外部プロバイダのテキストは信頼できない入力として扱い、
// クライアントがそのまま表示しても安全なプレーンテキストのみを保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプロバイダテキストのサニタイズ機能のインターフェースを定義する。
// 映画データの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// エンティティ参照はデコードし、前後の空白は除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのマークアップを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	// StrictPolicyはタグ除去後にエンティティ参照を残すため、デコードして戻す
	cleaned := s.policy.Sanitize(raw)
	cleaned = html.UnescapeString(cleaned)

	return strings.TrimSpace(cleaned)
}
