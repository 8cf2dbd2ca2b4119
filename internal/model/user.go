// Package model はドメインモデルを定義する。
package model

// Identity はセッションに保持されるログインユーザーの識別情報を表す。
// 資格情報交換の成功時にのみ生成され、署名付きセッショントークンの中にだけ存在する。
type Identity struct {
	ID    int64
	Email string
	Name  string
	Token string // バックエンドに転送するBearerトークン。空の場合は未保持
}

// HasToken はBearerトークンを保持しているかを返す。
func (i *Identity) HasToken() bool {
	return i != nil && i.Token != ""
}

// LoginRequest はバックエンドのログインエンドポイントへのリクエスト。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse はバックエンドのログイン成功レスポンス。
type LoginResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest はユーザー登録リクエスト。
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserProfile は /auth/me が返すユーザー情報。
type UserProfile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}
