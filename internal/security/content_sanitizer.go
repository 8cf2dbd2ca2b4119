package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はレシピ本文やAI生成テキストをサニタイズする。
// バックエンドやAIから返るテキストはHTMLを含む場合と含まない場合がある。
type ContentSanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewContentSanitizer は新しいContentSanitizerを生成する。
// 許可タグ: p, br, ul, ol, li, strong, em, b, i, h3, h4, a。
// 画像はCSPで自オリジンに制限しているため通さない。
func NewContentSanitizer() *ContentSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "b", "i",
		"h3", "h4",
	)
	rich.AllowAttrs("href").OnElements("a")
	rich.AllowURLSchemes("https", "http")
	rich.AllowRelativeURLs(false)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	rich.RequireNoReferrerOnLinks(true)

	return &ContentSanitizer{
		rich:  rich,
		plain: bluemonday.StrictPolicy(),
	}
}

// Sanitize は許可リスト外のタグと属性を除去したHTMLを返す。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	return s.rich.Sanitize(rawHTML)
}

// StripTags は全てのタグを除去したテキストを返す。
// 結果はHTMLエスケープ済みなのでテンプレートではそのまま扱わずunescapeして使う。
func (s *ContentSanitizer) StripTags(raw string) string {
	return html.UnescapeString(s.plain.Sanitize(raw))
}

// RenderText はレシピの手順などを表示用HTMLに変換する。
// タグを含まないテキストはエスケープした上で改行を<br>に置き換える。
func (s *ContentSanitizer) RenderText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "<") {
		escaped := html.EscapeString(strings.ReplaceAll(raw, "\r\n", "\n"))
		return strings.ReplaceAll(escaped, "\n", "<br>")
	}
	return s.Sanitize(raw)
}
