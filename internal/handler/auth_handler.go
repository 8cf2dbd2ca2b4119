// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/planeats/web/internal/auth"
	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/model"
	"github.com/planeats/web/internal/session"
	"github.com/planeats/web/internal/view"
)

// ログイン・登録画面で表示するメッセージ。
const (
	msgMissingFields      = "Por favor, preencha todos os campos"
	msgInvalidCredentials = "Email ou senha incorretos"
	msgLoginFailed        = "Erro inesperado durante o login"
	msgPasswordMismatch   = "As palavras-passe não correspondem."
	msgRegisterFailed     = "Erro de conexão ou falha ao contactar o servidor."
	msgRegistered         = "Conta criada com sucesso! Faça login para continuar."
	msgSessionFailed      = "Erro ao estabelecer sessão"
)

// CredentialExchanger は認証ハンドラーが必要とする資格情報交換のインターフェース。
type CredentialExchanger interface {
	Exchange(ctx context.Context, email, password string) (*model.Identity, error)
	Register(ctx context.Context, username, email, password string) (*model.UserProfile, error)
}

// AuthHandler はログイン・ログアウト・登録のHTTPハンドラー。
// JSON APIとHTMLフォームの両方を扱う。
type AuthHandler struct {
	exchanger CredentialExchanger
	sessions  session.Provider
	pages     *view.Renderer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(exchanger CredentialExchanger, sessions session.Provider, pages *view.Renderer) *AuthHandler {
	return &AuthHandler{
		exchanger: exchanger,
		sessions:  sessions,
		pages:     pages,
	}
}

// --- リクエスト・レスポンス型 ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionUser はクライアントに返すユーザー情報。Bearerトークンは含めない。
type sessionUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionResponse struct {
	Status middleware.AuthStatus `json:"status"`
	User   *sessionUser          `json:"user"`
}

func newSessionUser(identity *model.Identity) *sessionUser {
	if identity == nil {
		return nil
	}
	return &sessionUser{ID: identity.ID, Email: identity.Email, Name: identity.Name}
}

// loginFailure はExchangeのエラーをステータスコードと表示メッセージに変換する。
// 401/403以外の4xxはバックエンドのdetailをそのまま表示する。
func loginFailure(err error) (int, string) {
	var be *model.BackendError
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.As(err, &be) && be.Status >= 400 && be.Status < 500:
		return be.Status, be.Detail
	default:
		slog.Error("login failed", slog.String("error", err.Error()))
		return http.StatusBadGateway, msgLoginFailed
	}
}

// --- JSON API ---

// Login は資格情報をセッションに交換し、セッションCookieを設定する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	identity, err := h.exchanger.Exchange(r.Context(), req.Email, req.Password)
	if err != nil {
		status, msg := loginFailure(err)
		middleware.WriteDetail(w, status, msg)
		return
	}

	if err := h.sessions.SignIn(w, identity); err != nil {
		slog.Error("failed to sign in", slog.String("error", err.Error()))
		middleware.WriteDetail(w, http.StatusInternalServerError, msgSessionFailed)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Status: middleware.StatusAuthenticated,
		User:   newSessionUser(identity),
	})
}

// Logout はセッションを破棄する。セッションがなくても成功として扱う。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.signOut(w, r)
	writeJSON(w, http.StatusOK, sessionResponse{Status: middleware.StatusUnauthenticated})
}

// Register は新規ユーザーを登録する。登録後のログインは行わない。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	profile, err := h.exchanger.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// Session は現在のリクエストの認証状態を返す。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{
		Status: middleware.StatusFromContext(r.Context()),
		User:   newSessionUser(identity),
	})
}

// --- HTMLフォーム ---

type loginPageData struct {
	CallbackURL string
	Email       string
}

type registerPageData struct {
	Username string
	Email    string
}

// LoginPage はログインフォームを表示する。
// 公開ページのためセッションがあってもリダイレクトせず、ログイン中である旨を表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	callback := middleware.SafeCallbackURL(r.URL.Query().Get("callbackUrl"))

	page := newPage(r, "Entrar", loginPageData{CallbackURL: callback})
	if r.URL.Query().Get("registered") != "" {
		page.Notice = msgRegistered
	}
	h.pages.Render(w, http.StatusOK, "login", page)
}

// LoginSubmit はログインフォームを処理する。
// POST /login
func (h *AuthHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	callback := middleware.SafeCallbackURL(r.PostFormValue("callbackUrl"))

	identity, err := h.exchanger.Exchange(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		status, msg := loginFailure(err)
		page := newPage(r, "Entrar", loginPageData{CallbackURL: callback, Email: email})
		page.Error = msg
		h.pages.Render(w, status, "login", page)
		return
	}

	if err := h.sessions.SignIn(w, identity); err != nil {
		slog.Error("failed to sign in", slog.String("error", err.Error()))
		page := newPage(r, "Entrar", loginPageData{CallbackURL: callback, Email: email})
		page.Error = msgSessionFailed
		h.pages.Render(w, http.StatusInternalServerError, "login", page)
		return
	}

	http.Redirect(w, r, callback, http.StatusSeeOther)
}

// RegisterPage は登録フォームを表示する。セッションの有無にかかわらずリダイレクトしない。
// GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "register", newPage(r, "Criar conta", registerPageData{}))
}

// RegisterSubmit は登録フォームを処理し、成功時はログイン画面へ遷移する。
// POST /register
func (h *AuthHandler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	data := registerPageData{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
	}
	password := r.PostFormValue("password")

	fail := func(status int, msg string) {
		page := newPage(r, "Criar conta", data)
		page.Error = msg
		h.pages.Render(w, status, "register", page)
	}

	if data.Username == "" || data.Email == "" || password == "" {
		fail(http.StatusBadRequest, msgMissingFields+".")
		return
	}
	if password != r.PostFormValue("confirm_password") {
		fail(http.StatusBadRequest, msgPasswordMismatch)
		return
	}

	if _, err := h.exchanger.Register(r.Context(), data.Username, data.Email, password); err != nil {
		var be *model.BackendError
		switch {
		case model.IsValidation(err):
			fail(http.StatusBadRequest, msgMissingFields+".")
		case errors.As(err, &be):
			fail(be.Status, be.Detail)
		default:
			slog.Error("registration failed", slog.String("error", err.Error()))
			fail(http.StatusBadGateway, msgRegisterFailed)
		}
		return
	}

	http.Redirect(w, r, middleware.LoginPath+"?registered=1", http.StatusSeeOther)
}

// LogoutSubmit はセッションを破棄してトップページへ遷移する。
// POST /logout
func (h *AuthHandler) LogoutSubmit(w http.ResponseWriter, r *http.Request) {
	h.signOut(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// signOut はセッションを破棄する。失効の記録に失敗してもCookieは削除済み。
func (h *AuthHandler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		slog.Error("failed to sign out", slog.String("error", err.Error()))
	}
}
