// Package session は署名付きセッショントークンの発行・検証・破棄を提供する。
// トークンはHS256で署名したJWTで、HTTP Only Cookieに格納する。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/planeats/web/internal/model"
)

// CookieName はセッショントークンを格納するCookie名。
const CookieName = "planeats.session-token"

var (
	// ErrNoSession はリクエストにセッショントークンが存在しないことを表す。
	ErrNoSession = errors.New("no session token")
	// ErrInvalidSession はトークンの署名不正・期限切れ・失効を表す。
	ErrInvalidSession = errors.New("invalid session token")
)

// Provider はセッションのライフサイクルを扱う。
// 他のパッケージはこのインターフェース経由でのみセッションに触れる。
type Provider interface {
	// Current はリクエストのセッションからIdentityを取得する。
	Current(r *http.Request) (*model.Identity, error)
	// SignIn はIdentityを格納したトークンを発行し、Cookieに設定する。
	SignIn(w http.ResponseWriter, identity *model.Identity) error
	// SignOut はトークンを失効させ、Cookieを削除する。
	SignOut(w http.ResponseWriter, r *http.Request) error
}

// Config はセッションマネージャーの設定。
type Config struct {
	Secret       []byte
	MaxAge       time.Duration
	CookieSecure bool
	CookieDomain string
}

// claims はセッショントークンのペイロード。
// SubjectにユーザーID、IDにトークン固有のjtiを格納する。
type claims struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token,omitempty"`
	jwt.RegisteredClaims
}

// Manager はProviderのJWT実装。
type Manager struct {
	config Config
	store  RevocationStore
	logger *slog.Logger
	now    func() time.Time
}

// NewManager はManagerを生成する。
func NewManager(config Config, store RevocationStore, logger *slog.Logger) *Manager {
	return &Manager{
		config: config,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Issue はIdentityを格納した署名付きトークンと有効期限を返す。
func (m *Manager) Issue(identity *model.Identity) (string, time.Time, error) {
	if identity == nil {
		return "", time.Time{}, fmt.Errorf("identity is required")
	}

	now := m.now()
	expiresAt := now.Add(m.config.MaxAge)

	c := claims{
		Email:       identity.Email,
		Name:        identity.Name,
		AccessToken: identity.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse はトークンを検証してIdentityを復元する。
// 失効確認でストアがエラーを返した場合は無効として扱う。
func (m *Manager) Parse(ctx context.Context, token string) (*model.Identity, error) {
	c, err := m.parseClaims(token)
	if err != nil {
		return nil, err
	}

	revoked, err := m.store.IsRevoked(ctx, c.ID)
	if err != nil {
		m.logger.Error("failed to check session revocation",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: revocation check failed", ErrInvalidSession)
	}
	if revoked {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidSession)
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", ErrInvalidSession)
	}

	return &model.Identity{
		ID:    id,
		Email: c.Email,
		Name:  c.Name,
		Token: c.AccessToken,
	}, nil
}

func (m *Manager) parseClaims(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c,
		func(*jwt.Token) (interface{}, error) {
			return m.config.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidSession)
	}
	return c, nil
}

// Current はProviderを実装する。
func (m *Manager) Current(r *http.Request) (*model.Identity, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	return m.Parse(r.Context(), cookie.Value)
}

// SignIn はProviderを実装する。
func (m *Manager) SignIn(w http.ResponseWriter, identity *model.Identity) error {
	token, _, err := m.Issue(identity)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   int(m.config.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SignOut はProviderを実装する。
// トークンが有効な場合は有効期限まで失効リストに登録する。Cookieは常に削除する。
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	m.ClearCookie(w)

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	c, err := m.parseClaims(cookie.Value)
	if err != nil {
		return nil
	}

	if err := m.store.Revoke(r.Context(), c.ID, c.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	m.logger.Info("user logged out", slog.String("user_id", c.Subject))
	return nil
}

// ClearCookie はセッションCookieを削除する。
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
