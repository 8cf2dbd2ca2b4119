// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/planeats/web/internal/model"
	"github.com/planeats/web/internal/session"
)

// AuthStatus はリクエストの認証状態。
type AuthStatus string

const (
	// StatusLoading はセッションがまだ解決されていない状態。
	StatusLoading AuthStatus = "loading"
	// StatusAuthenticated は有効なセッションを持つ状態。
	StatusAuthenticated AuthStatus = "authenticated"
	// StatusUnauthenticated はセッションがない、または無効な状態。
	StatusUnauthenticated AuthStatus = "unauthenticated"
)

// LoginPath は未認証のページ遷移のリダイレクト先。
const LoginPath = "/login"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// gateContextKey はゲートの解決結果を格納するためのキー。
var gateContextKey = contextKey("gate")

// gateResult はゲートが解決したセッション。identityがnilなら未認証。
type gateResult struct {
	identity *model.Identity
}

// 認証なしでアクセスできるパス。
var (
	publicExactPaths = map[string]struct{}{
		"/":            {},
		"/login":       {},
		"/register":    {},
		"/explorar":    {},
		"/health":      {},
		"/favicon.ico": {},
	}
	publicPathPrefixes = []string{
		"/static/",
		"/images/",
		"/styles/",
		"/api/auth/",
	}
)

// IsPublicPath はpathが認証なしでアクセスできるかを返す。
func IsPublicPath(path string) bool {
	if _, ok := publicExactPaths[path]; ok {
		return true
	}
	for _, prefix := range publicPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// GateRecorder はゲートが未認証リクエストを遮断した回数を記録する。
// kindは "redirect"（ページ遷移）または "reject"（JSON API）。
type GateRecorder interface {
	RecordGateBlock(kind string)
}

type noopGateRecorder struct{}

func (noopGateRecorder) RecordGateBlock(string) {}

// NewRouteGate はリクエストごとにセッションを解決し、保護されたパスへの未認証アクセスを遮断する
// ミドルウェアを返す。
//   - 公開パス: セッションの有無にかかわらず通過させる
//   - 認証済み: Identityをコンテキストに注入して通過させる
//   - 未認証のページ遷移: /login?callbackUrl=<元のパス> へ302リダイレクト
//   - 未認証の /api/ パス: 401 {"detail":"Not authenticated"}
//
// 公開パスでもIdentityは注入し、ナビゲーションの表示に使う。
func NewRouteGate(provider session.Provider, recorder GateRecorder) func(next http.Handler) http.Handler {
	if recorder == nil {
		recorder = noopGateRecorder{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := provider.Current(r)
			if err != nil {
				identity = nil
				// 期限切れや失効は通常の未認証として扱う
				if !errors.Is(err, session.ErrNoSession) {
					slog.Debug("session rejected",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			if identity != nil {
				annotateLogUser(ctx, identity.ID)
			}
			r = r.WithContext(ctx)

			if identity != nil || IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if strings.HasPrefix(r.URL.Path, "/api/") {
				recorder.RecordGateBlock("reject")
				WriteDetail(w, http.StatusUnauthorized, model.MsgNotAuthenticated)
				return
			}

			recorder.RecordGateBlock("redirect")
			http.Redirect(w, r, LoginRedirectURL(r.URL), http.StatusFound)
		})
	}
}

// LoginRedirectURL は元のパス（クエリを含む）をcallbackUrlに持つログインURLを返す。
func LoginRedirectURL(original *url.URL) string {
	target := original.Path
	if original.RawQuery != "" {
		target += "?" + original.RawQuery
	}
	return LoginPath + "?callbackUrl=" + url.QueryEscape(target)
}

// SafeCallbackURL はログイン後の遷移先として安全なローカルパスを返す。
// 外部URLやスキーム相対URLは "/" に置き換える。
func SafeCallbackURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return "/"
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}

// ContextWithIdentity はゲートの解決結果をコンテキストに注入する。
// identityがnilの場合は未認証として扱われる。
// テストやミドルウェア以外のコンテキスト生成でも使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, gateContextKey, &gateResult{identity: identity})
}

// IdentityFromContext はリクエストコンテキストからIdentityを取得する。
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	res, ok := ctx.Value(gateContextKey).(*gateResult)
	if !ok || res.identity == nil {
		return nil, false
	}
	return res.identity, true
}

// StatusFromContext はリクエストの認証状態を返す。
// ゲートを通過していないコンテキストはStatusLoading。
func StatusFromContext(ctx context.Context) AuthStatus {
	res, ok := ctx.Value(gateContextKey).(*gateResult)
	switch {
	case !ok:
		return StatusLoading
	case res.identity == nil:
		return StatusUnauthenticated
	default:
		return StatusAuthenticated
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (int64, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return identity.ID, nil
}

// ContextTokenSource はリクエストコンテキストのIdentityからBearerトークンを提供する。
type ContextTokenSource struct{}

// BearerToken はbackend.TokenSourceを実装する。
func (ContextTokenSource) BearerToken(ctx context.Context) (string, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || !identity.HasToken() {
		return "", false
	}
	return identity.Token, true
}
