// Package auth はメールアドレスとパスワードをバックエンドに送信し、
// ローカルセッションの識別情報に交換する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/planeats/web/internal/model"
)

var (
	// ErrMissingCredentials はメールアドレスまたはパスワードが未入力であることを表す。
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrInvalidCredentials はバックエンドが資格情報を拒否したことを表す。
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ログイン試行の結果ラベル。
const (
	ResultSuccess            = "success"
	ResultMissingCredentials = "missing_credentials"
	ResultInvalidCredentials = "invalid_credentials"
	ResultRejected           = "rejected"
	ResultError              = "error"
)

// CredentialClient はバックエンドの認証エンドポイントへのアクセスを抽象化する。
type CredentialClient interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.UserProfile, error)
}

// AttemptRecorder はログイン試行の結果を記録する。
type AttemptRecorder interface {
	RecordLoginAttempt(result string)
}

type noopAttemptRecorder struct{}

func (noopAttemptRecorder) RecordLoginAttempt(string) {}

// Exchanger は資格情報をセッション用のIdentityに交換する。
// 試行は1回のみで、リトライやロックアウトは行わない。
type Exchanger struct {
	client   CredentialClient
	recorder AttemptRecorder
	logger   *slog.Logger
}

// NewExchanger はExchangerを生成する。recorderがnilの場合は記録を行わない。
func NewExchanger(client CredentialClient, recorder AttemptRecorder, logger *slog.Logger) *Exchanger {
	if recorder == nil {
		recorder = noopAttemptRecorder{}
	}
	return &Exchanger{
		client:   client,
		recorder: recorder,
		logger:   logger,
	}
}

// Exchange はメールアドレスとパスワードをバックエンドで検証し、Identityを返す。
// 失敗時は常にnilのIdentityを返す。
//   - 未入力: ErrMissingCredentials（ネットワーク呼び出しなし）
//   - 401/403: ErrInvalidCredentials
//   - その他の4xx（無効化されたユーザーなど）: detailを保持したBackendErrorをラップして返す
//   - その他: ラップしたエラー
func (e *Exchanger) Exchange(ctx context.Context, email, password string) (*model.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		e.recorder.RecordLoginAttempt(ResultMissingCredentials)
		return nil, ErrMissingCredentials
	}

	resp, err := e.client.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		if isRejection(err) {
			e.recorder.RecordLoginAttempt(ResultInvalidCredentials)
			e.logger.Info("login rejected", slog.String("email", email))
			return nil, ErrInvalidCredentials
		}
		var be *model.BackendError
		if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
			e.recorder.RecordLoginAttempt(ResultRejected)
			e.logger.Info("login refused by backend",
				slog.String("email", email),
				slog.Int("status", be.Status),
			)
		} else {
			e.recorder.RecordLoginAttempt(ResultError)
		}
		return nil, fmt.Errorf("failed to exchange credentials: %w", err)
	}

	if resp == nil || resp.AccessToken == "" {
		e.recorder.RecordLoginAttempt(ResultError)
		return nil, fmt.Errorf("failed to exchange credentials: login response has no access_token")
	}

	name := resp.Username
	if name == "" {
		name = resp.Email
	}

	e.recorder.RecordLoginAttempt(ResultSuccess)
	e.logger.Info("user logged in", slog.Int64("user_id", resp.ID))

	return &model.Identity{
		ID:    resp.ID,
		Email: resp.Email,
		Name:  name,
		Token: resp.AccessToken,
	}, nil
}

// Register は新規ユーザーを登録する。3項目すべてが必須。
func (e *Exchanger) Register(ctx context.Context, username, email, password string) (*model.UserProfile, error) {
	req := model.RegisterRequest{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	switch {
	case req.Username == "":
		return nil, model.NewMissingFieldError("username")
	case req.Email == "":
		return nil, model.NewMissingFieldError("email")
	case strings.TrimSpace(req.Password) == "":
		return nil, model.NewMissingFieldError("password")
	}

	profile, err := e.client.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	e.logger.Info("user registered", slog.Int64("user_id", profile.ID))
	return profile, nil
}

// isRejection はバックエンドが資格情報を拒否したエラーかを判定する。
func isRejection(err error) bool {
	if errors.Is(err, model.ErrNotAuthenticated) {
		return true
	}
	var be *model.BackendError
	return errors.As(err, &be) && be.Status == http.StatusForbidden
}
