package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/model"
)

// RecipeService はレシピハンドラーが必要とするバックエンド操作のインターフェース。
type RecipeService interface {
	ListRecipes(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, in model.RecipeInput) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
	GenerateCustomRecipe(ctx context.Context, req model.CustomRecipeRequest) (*model.CustomRecipeResponse, error)
}

// RecipeHandler はレシピとAIレシピ生成のJSON APIハンドラー。
type RecipeHandler struct {
	service RecipeService
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeService) *RecipeHandler {
	return &RecipeHandler{service: service}
}

// List はレシピ一覧を返す。
// GET /api/recipes?user_created_only=true&max_calories=&max_prep_time=&ingredients=a,b&skip=&limit=
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.RecipeFilter{
		UserCreatedOnly: queryBool(r, "user_created_only"),
		MaxCalories:     queryInt(r, "max_calories"),
		MaxPrepTime:     queryInt(r, "max_prep_time"),
		Skip:            queryInt(r, "skip"),
		Limit:           queryInt(r, "limit"),
	}
	for _, raw := range r.URL.Query()["ingredients"] {
		for _, ing := range strings.Split(raw, ",") {
			if ing = strings.TrimSpace(ing); ing != "" {
				filter.Ingredients = append(filter.Ingredients, ing)
			}
		}
	}

	recipes, err := h.service.ListRecipes(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

// Get はレシピを1件返す。
// GET /api/recipes/{id}
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	recipe, err := h.service.GetRecipe(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Create はレシピを登録する。
// POST /api/recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.RecipeInput
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	recipe, err := h.service.CreateRecipe(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// Update はレシピを更新する。
// PUT /api/recipes/{id}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var in model.RecipeInput
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	recipe, err := h.service.UpdateRecipe(r.Context(), id, in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Delete はレシピを削除する。
// DELETE /api/recipes/{id}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.service.DeleteRecipe(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateCustom はパントリー食材からAIレシピを生成する。結果は保存しない。
// POST /api/ai/custom-recipes
func (h *RecipeHandler) GenerateCustom(w http.ResponseWriter, r *http.Request) {
	var req model.CustomRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	resp, err := h.service.GenerateCustomRecipe(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
