package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/planeats/web/internal/model"
)

// DetailBody はAPIエラーレスポンスの統一フォーマット。バックエンドと同じ {detail} 形式。
type DetailBody struct {
	Detail string `json:"detail"`
}

// WriteDetail は {detail} 形式でHTTPエラーレスポンスを書き込む。
func WriteDetail(w http.ResponseWriter, statusCode int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DetailBody{Detail: detail})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteDetail(w, http.StatusInternalServerError, model.MsgInternalError)
}

// WriteError はエラーの種類に応じたステータスで {detail} を書き込む。
//   - 入力検証エラー: 400
//   - 未認証: 401
//   - バックエンドの非2xx: バックエンドのステータスとdetailをそのまま返す
//   - その他（通信エラー等）: 502
func WriteError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		WriteDetail(w, http.StatusBadRequest, ve.Error())
		return
	}

	if errors.Is(err, model.ErrNotAuthenticated) {
		WriteDetail(w, http.StatusUnauthorized, model.MsgNotAuthenticated)
		return
	}

	var be *model.BackendError
	if errors.As(err, &be) {
		WriteDetail(w, be.Status, be.Detail)
		return
	}

	slog.Error("backend unavailable", slog.String("error", err.Error()))
	WriteDetail(w, http.StatusBadGateway, model.MsgBackendUnavailable)
}
