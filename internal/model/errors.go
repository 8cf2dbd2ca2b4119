package model

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated はBearerトークンが存在しない、またはバックエンドに拒否された状態を表す。
// 呼び出し側は汎用エラー表示ではなくログイン画面への誘導を行う。
var ErrNotAuthenticated = errors.New("not authenticated")

// 利用者に表示するフォールバックメッセージ。
const (
	MsgNotAuthenticated   = "Not authenticated"
	MsgBackendUnavailable = "Backend indisponível"
	MsgInternalError      = "Erro interno do servidor"
)

// BackendError はバックエンドが2xx以外のステータスを返したことを表す。
// Detailにはレスポンスの {detail} 、なければ本文、なければ "HTTP <status>" が入る。
type BackendError struct {
	Status int
	Detail string
}

// Error はerrorインターフェースを実装する。
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// ValidationError はネットワーク呼び出し前に検出した入力エラーを表す。
type ValidationError struct {
	Field   string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewMissingFieldError は必須項目未入力エラーを生成する。
func NewMissingFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "campo obrigatório",
	}
}

// IsValidation はerrがValidationErrorかを判定する。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
