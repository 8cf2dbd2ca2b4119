// Package view はサーバーレンダリングするページのテンプレートと静的ファイルを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/planeats/web/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// PlaceholderImage は画像が取得できない場合に表示する画像のパス。
const PlaceholderImage = "/static/placeholder.svg"

// ImageProxyPath は外部画像を中継するエンドポイントのパス。
const ImageProxyPath = "/images/proxy"

// TextRenderer はレシピ本文を表示用の安全なHTMLに変換する。
type TextRenderer interface {
	RenderText(raw string) string
	StripTags(raw string) string
}

// Page は全ページ共通のテンプレートデータ。
// ヘッダーのログイン状態はIdentityからのみ導出する。
type Page struct {
	Title     string
	Path      string
	Identity  *model.Identity
	CSRFToken string
	Error     string
	Notice    string
	Data      any
}

// LoggedIn はナビゲーションをログイン済み表示にするかを返す。
func (p *Page) LoggedIn() bool {
	return p.Identity != nil
}

// Renderer はページ名ごとにレイアウトと結合済みのテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートを全てパースしてRendererを生成する。
func NewRenderer(text TextRenderer) (*Renderer, error) {
	funcs := template.FuncMap{
		"initials": Initials,
		"imageSrc": ImageSrc,
		"quantity": FormatQuantity,
		"percent":  FormatPercent,
		"richText": func(raw string) template.HTML {
			// RenderTextの出力はサニタイズ済み
			return template.HTML(text.RenderText(raw))
		},
		"plainText": text.StripTags,
		"value":     Value,
		"selected": func(list []string, v string) bool {
			for _, item := range list {
				if item == v {
					return true
				}
			}
			return false
		},
	}

	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	names, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(names))
	for _, path := range names {
		name := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".html")
		if name == "layout" {
			continue
		}
		clone, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templatesFS, path); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = clone
	}

	return &Renderer{pages: pages}, nil
}

// Render は指定ページをレンダリングしてステータスコードとともに書き込む。
// 実行エラー時は途中までの出力を送らずに500を返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page *Page) {
	tmpl, ok := r.pages[name]
	if !ok {
		slog.Error("template not found", slog.String("template", name))
		http.Error(w, model.MsgInternalError, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, model.MsgInternalError, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Has は指定ページのテンプレートが存在するかを返す。
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// StaticHandler は /static/ 配下の埋め込み静的ファイルを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static files not embedded: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Initials は表示名からアバター用のイニシャルを返す。
// 空白区切りの各語の先頭文字を大文字で連結し、最大2文字に切り詰める。名前が空なら "U"。
func Initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "U"
	}

	var b []rune
	for _, part := range parts {
		b = append(b, []rune(strings.ToUpper(string([]rune(part)[0])))...)
		if len(b) >= 2 {
			break
		}
	}
	if len(b) > 2 {
		b = b[:2]
	}
	return string(b)
}

// ImageSrc は画像URLを表示用のsrcに変換する。
// 空の場合はプレースホルダー、ローカルパスはそのまま、外部URLは画像プロキシ経由にする。
// 引数はstringまたは*stringを受け付ける。
func ImageSrc(v any) string {
	var raw string
	switch s := v.(type) {
	case string:
		raw = s
	case *string:
		if s != nil {
			raw = *s
		}
	}

	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return PlaceholderImage
	case strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//"):
		return raw
	default:
		return ImageProxyPath + "?src=" + url.QueryEscape(raw)
	}
}

// Value は任意項目のポインタを表示用の文字列にする。nilは空文字。
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FormatQuantity は数量を小数点にカンマを使う表記で返す。
func FormatQuantity(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

// FormatPercent は0〜1または0〜100のスコアを整数のパーセント表記で返す。
func FormatPercent(score float64) string {
	if score <= 1 {
		score *= 100
	}
	return strconv.Itoa(int(score+0.5)) + "%"
}
