// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizer は投稿メッセージからHTMLを取り除き、
// 保存・表示される本文をプレーンテキストに限定する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses はエンティティで多重にエスケープされたタグを剥がす最大回数。
const maxSanitizePasses = 3

// MessageSanitizer は投稿メッセージのサニタイズ機能のインターフェースを定義する。
type MessageSanitizer interface {
	// Sanitize は全てのHTMLタグを除去したプレーンテキストを返す。
	// script, style の中身は本文として残さない。
	// 前後の空白は取り除く。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// messageSanitizer はMessageSanitizerの実装。
// bluemonday.Policy はゴルーチン間で共有してよい。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はタグを一切許可しないポリシーでMessageSanitizerを生成する。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLを除去したプレーンテキストを返す。
//
// bluemondayは出力をHTMLエスケープするため、保存用にエンティティを戻す。
// 戻した結果に "&lt;b&gt;" 由来のタグが現れる場合があるので、変化しなくなるまで繰り返す。
func (s *messageSanitizer) Sanitize(raw string) string {
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}
