package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/planeats/web/internal/model"
)

// バックエンドのエンドポイント。
const (
	pathLogin             = "/api/v1/auth/login"
	pathRegister          = "/api/v1/auth/register"
	pathMe                = "/api/v1/auth/me"
	pathPantryItems       = "/api/v1/pantry/items"
	pathRecipes           = "/api/v1/recipes"
	pathCustomRecipes     = "/api/v1/ai/custom-recipes"
	pathPreferences       = "/api/v1/user/preferences"
	pathPreferenceOptions = "/api/v1/user/preferences/options"
	pathRecommendations   = "/api/v1/recommendations"
)

// Login はメールアドレスとパスワードをバックエンドのログインエンドポイントに送信する。
// Authorizationヘッダーは付与しない。
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: pathLogin, body: req, out: &resp, public: true}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register は新規ユーザーを登録する。
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.UserProfile, error) {
	var resp model.UserProfile
	if err := c.do(ctx, call{method: http.MethodPost, path: pathRegister, body: req, out: &resp, public: true}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me はログインユーザーのプロフィールを取得する。
func (c *Client) Me(ctx context.Context) (*model.UserProfile, error) {
	var resp model.UserProfile
	if err := c.do(ctx, call{method: http.MethodGet, path: pathMe, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPantryItems はパントリー食材の一覧を取得する。
// skip/limitが0以下の場合はクエリに含めない。
func (c *Client) ListPantryItems(ctx context.Context, skip, limit int) ([]model.PantryItem, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	items := []model.PantryItem{}
	if err := c.do(ctx, call{method: http.MethodGet, path: pathPantryItems, query: q, out: &items}); err != nil {
		return nil, err
	}
	return items, nil
}

// GetPantryItem はパントリー食材を1件取得する。
func (c *Client) GetPantryItem(ctx context.Context, id int64) (*model.PantryItem, error) {
	var item model.PantryItem
	if err := c.do(ctx, call{method: http.MethodGet, path: itemPath(pathPantryItems, id), out: &item}); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreatePantryItem はパントリー食材を登録する。必須項目はローカルで検証する。
func (c *Client) CreatePantryItem(ctx context.Context, in model.PantryItemCreate) (*model.PantryItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var item model.PantryItem
	if err := c.do(ctx, call{method: http.MethodPost, path: pathPantryItems, body: in, out: &item}); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdatePantryItem はパントリー食材を部分更新する。
func (c *Client) UpdatePantryItem(ctx context.Context, id int64, in model.PantryItemUpdate) (*model.PantryItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var item model.PantryItem
	if err := c.do(ctx, call{method: http.MethodPut, path: itemPath(pathPantryItems, id), body: in, out: &item}); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeletePantryItem はパントリー食材を削除する。
func (c *Client) DeletePantryItem(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: itemPath(pathPantryItems, id)})
}

// ListRecipes はレシピ一覧を取得する。
func (c *Client) ListRecipes(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, error) {
	q := url.Values{}
	if filter.UserCreatedOnly {
		q.Set("user_created_only", "true")
	}
	if filter.MaxCalories > 0 {
		q.Set("max_calories", strconv.Itoa(filter.MaxCalories))
	}
	if filter.MaxPrepTime > 0 {
		q.Set("max_prep_time", strconv.Itoa(filter.MaxPrepTime))
	}
	for _, ing := range filter.Ingredients {
		if ing != "" {
			q.Add("ingredients", ing)
		}
	}
	if filter.Skip > 0 {
		q.Set("skip", strconv.Itoa(filter.Skip))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	recipes := []model.Recipe{}
	if err := c.do(ctx, call{method: http.MethodGet, path: pathRecipes, query: q, out: &recipes}); err != nil {
		return nil, err
	}
	return recipes, nil
}

// GetRecipe はレシピを1件取得する。
func (c *Client) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := c.do(ctx, call{method: http.MethodGet, path: itemPath(pathRecipes, id), out: &recipe}); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// CreateRecipe はレシピを登録する。
func (c *Client) CreateRecipe(ctx context.Context, in model.RecipeInput) (*model.Recipe, error) {
	if err := in.ValidateCreate(); err != nil {
		return nil, err
	}
	var recipe model.Recipe
	if err := c.do(ctx, call{method: http.MethodPost, path: pathRecipes, body: in, out: &recipe}); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// UpdateRecipe はレシピを部分更新する。
func (c *Client) UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := c.do(ctx, call{method: http.MethodPut, path: itemPath(pathRecipes, id), body: in, out: &recipe}); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// DeleteRecipe はレシピを削除する。
func (c *Client) DeleteRecipe(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: itemPath(pathRecipes, id)})
}

// GenerateCustomRecipe は選択したパントリー食材からAIでレシピを生成する。
// 食材が1つも選択されていない場合はネットワーク呼び出しを行わずに検証エラーを返す。
func (c *Client) GenerateCustomRecipe(ctx context.Context, req model.CustomRecipeRequest) (*model.CustomRecipeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp model.CustomRecipeResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: pathCustomRecipes, body: req, out: &resp, client: c.aiClient}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPreferences はユーザーの食事設定を取得する。
func (c *Client) GetPreferences(ctx context.Context) (*model.UserPreferences, error) {
	var prefs model.UserPreferences
	if err := c.do(ctx, call{method: http.MethodGet, path: pathPreferences, out: &prefs}); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdatePreferences はユーザーの食事設定を更新する。
func (c *Client) UpdatePreferences(ctx context.Context, in model.UserPreferencesUpdate) (*model.UserPreferences, error) {
	var prefs model.UserPreferences
	if err := c.do(ctx, call{method: http.MethodPut, path: pathPreferences, body: in, out: &prefs}); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// GetPreferenceOptions は設定フォームの選択肢を取得する。認証不要。
func (c *Client) GetPreferenceOptions(ctx context.Context) (*model.PreferenceOptions, error) {
	var opts model.PreferenceOptions
	if err := c.do(ctx, call{method: http.MethodGet, path: pathPreferenceOptions, out: &opts, public: true}); err != nil {
		return nil, err
	}
	return &opts, nil
}

// GetRecommendations はパントリーの内容に基づくおすすめレシピを取得する。
func (c *Client) GetRecommendations(ctx context.Context, params model.RecommendationParams) (*model.Recommendations, error) {
	q := url.Values{}
	if params.MaxPreparationTime > 0 {
		q.Set("max_preparation_time", strconv.Itoa(params.MaxPreparationTime))
	}
	if params.MaxCalories > 0 {
		q.Set("max_calories", strconv.Itoa(params.MaxCalories))
	}
	if params.MaxMissingIngredients > 0 {
		q.Set("max_missing_ingredients", strconv.Itoa(params.MaxMissingIngredients))
	}
	if params.SortBy != "" {
		q.Set("sort_by", params.SortBy)
	}
	if params.SortOrder != "" {
		q.Set("sort_order", params.SortOrder)
	}
	if params.UsePreferences {
		q.Set("use_preferences", "true")
	}

	var recs model.Recommendations
	if err := c.do(ctx, call{method: http.MethodGet, path: pathRecommendations, query: q, out: &recs}); err != nil {
		return nil, err
	}
	if recs.Recommendations == nil {
		recs.Recommendations = []model.RecommendedRecipe{}
	}
	return &recs, nil
}

func itemPath(base string, id int64) string {
	return fmt.Sprintf("%s/%d", base, id)
}
