package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/planeats/web/internal/model"
)

// maxJSONBodySize はJSONリクエストボディの上限（1MB）。
const maxJSONBodySize = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをvにデコードする。
// 解析に失敗した場合はValidationErrorを返す。
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &model.ValidationError{Message: "Corpo da requisição vazio"}
		}
		return &model.ValidationError{Message: "JSON inválido"}
	}
	return nil
}

// idParam はURLパスの{id}を正の整数として取得する。
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: "id", Message: "identificador inválido"}
	}
	return id, nil
}

// queryInt はクエリパラメータを0以上の整数として取得する。未指定や不正値は0。
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// queryBool はクエリパラメータが "true" または "1" かを返す。
func queryBool(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "true", "1", "on":
		return true
	default:
		return false
	}
}
