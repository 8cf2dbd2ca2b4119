package handler

import (
	"context"
	"net/http"

	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/model"
)

// AccountService はユーザー情報・設定・おすすめのバックエンド操作のインターフェース。
type AccountService interface {
	Me(ctx context.Context) (*model.UserProfile, error)
	GetPreferences(ctx context.Context) (*model.UserPreferences, error)
	UpdatePreferences(ctx context.Context, in model.UserPreferencesUpdate) (*model.UserPreferences, error)
	GetPreferenceOptions(ctx context.Context) (*model.PreferenceOptions, error)
	GetRecommendations(ctx context.Context, params model.RecommendationParams) (*model.Recommendations, error)
}

// AccountHandler はユーザー情報・設定・おすすめのJSON APIハンドラー。
type AccountHandler struct {
	service AccountService
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Me はバックエンドから現在のユーザー情報を取得して返す。
// GET /api/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Me(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetPreferences はユーザー設定を返す。
// GET /api/preferences
func (h *AccountHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.GetPreferences(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences はユーザー設定を部分更新する。
// PUT /api/preferences
func (h *AccountHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var in model.UserPreferencesUpdate
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// PreferenceOptions は設定フォームの選択肢を返す。
// GET /api/preferences/options
func (h *AccountHandler) PreferenceOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.GetPreferenceOptions(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

// Recommendations はパントリーに基づくおすすめレシピを返す。
// GET /api/recommendations?max_preparation_time=&max_calories=&max_missing_ingredients=&sort_by=&sort_order=&use_preferences=
func (h *AccountHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	params, _ := recommendationParamsFromQuery(r)

	result, err := h.service.GetRecommendations(r.Context(), params)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
