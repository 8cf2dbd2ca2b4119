package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/model"
	"github.com/planeats/web/internal/security"
	"github.com/planeats/web/internal/view"
)

// --- モック定義 ---

// mockExchanger はCredentialExchangerのモック実装。
type mockExchanger struct {
	exchangeFn func(ctx context.Context, email, password string) (*model.Identity, error)
	registerFn func(ctx context.Context, username, email, password string) (*model.UserProfile, error)
}

func (m *mockExchanger) Exchange(ctx context.Context, email, password string) (*model.Identity, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, email, password)
	}
	return nil, model.ErrNotAuthenticated
}

func (m *mockExchanger) Register(ctx context.Context, username, email, password string) (*model.UserProfile, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, email, password)
	}
	return &model.UserProfile{ID: 1, Username: username, Email: email}, nil
}

// mockProvider はsession.Providerのモック実装。
type mockProvider struct {
	currentFn    func(r *http.Request) (*model.Identity, error)
	signInFn     func(w http.ResponseWriter, identity *model.Identity) error
	signOutFn    func(w http.ResponseWriter, r *http.Request) error
	signedIn     *model.Identity
	signOutCalls int
}

func (m *mockProvider) Current(r *http.Request) (*model.Identity, error) {
	if m.currentFn != nil {
		return m.currentFn(r)
	}
	return nil, nil
}

func (m *mockProvider) SignIn(w http.ResponseWriter, identity *model.Identity) error {
	m.signedIn = identity
	if m.signInFn != nil {
		return m.signInFn(w, identity)
	}
	return nil
}

func (m *mockProvider) SignOut(w http.ResponseWriter, r *http.Request) error {
	m.signOutCalls++
	if m.signOutFn != nil {
		return m.signOutFn(w, r)
	}
	return nil
}

// mockBackend はBackendのモック実装。未設定のメソッドはゼロ値を返す。
type mockBackend struct {
	meFn                   func(ctx context.Context) (*model.UserProfile, error)
	listPantryItemsFn      func(ctx context.Context, skip, limit int) ([]model.PantryItem, error)
	getPantryItemFn        func(ctx context.Context, id int64) (*model.PantryItem, error)
	createPantryItemFn     func(ctx context.Context, in model.PantryItemCreate) (*model.PantryItem, error)
	updatePantryItemFn     func(ctx context.Context, id int64, in model.PantryItemUpdate) (*model.PantryItem, error)
	deletePantryItemFn     func(ctx context.Context, id int64) error
	listRecipesFn          func(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, error)
	getRecipeFn            func(ctx context.Context, id int64) (*model.Recipe, error)
	createRecipeFn         func(ctx context.Context, in model.RecipeInput) (*model.Recipe, error)
	updateRecipeFn         func(ctx context.Context, id int64, in model.RecipeInput) (*model.Recipe, error)
	deleteRecipeFn         func(ctx context.Context, id int64) error
	generateCustomRecipeFn func(ctx context.Context, req model.CustomRecipeRequest) (*model.CustomRecipeResponse, error)
	getPreferencesFn       func(ctx context.Context) (*model.UserPreferences, error)
	updatePreferencesFn    func(ctx context.Context, in model.UserPreferencesUpdate) (*model.UserPreferences, error)
	getPreferenceOptionsFn func(ctx context.Context) (*model.PreferenceOptions, error)
	getRecommendationsFn   func(ctx context.Context, params model.RecommendationParams) (*model.Recommendations, error)
}

func (m *mockBackend) Me(ctx context.Context) (*model.UserProfile, error) {
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	return &model.UserProfile{}, nil
}

func (m *mockBackend) ListPantryItems(ctx context.Context, skip, limit int) ([]model.PantryItem, error) {
	if m.listPantryItemsFn != nil {
		return m.listPantryItemsFn(ctx, skip, limit)
	}
	return nil, nil
}

func (m *mockBackend) GetPantryItem(ctx context.Context, id int64) (*model.PantryItem, error) {
	if m.getPantryItemFn != nil {
		return m.getPantryItemFn(ctx, id)
	}
	return &model.PantryItem{ID: id}, nil
}

func (m *mockBackend) CreatePantryItem(ctx context.Context, in model.PantryItemCreate) (*model.PantryItem, error) {
	if m.createPantryItemFn != nil {
		return m.createPantryItemFn(ctx, in)
	}
	return &model.PantryItem{}, nil
}

func (m *mockBackend) UpdatePantryItem(ctx context.Context, id int64, in model.PantryItemUpdate) (*model.PantryItem, error) {
	if m.updatePantryItemFn != nil {
		return m.updatePantryItemFn(ctx, id, in)
	}
	return &model.PantryItem{ID: id}, nil
}

func (m *mockBackend) DeletePantryItem(ctx context.Context, id int64) error {
	if m.deletePantryItemFn != nil {
		return m.deletePantryItemFn(ctx, id)
	}
	return nil
}

func (m *mockBackend) ListRecipes(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, error) {
	if m.listRecipesFn != nil {
		return m.listRecipesFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockBackend) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	if m.getRecipeFn != nil {
		return m.getRecipeFn(ctx, id)
	}
	return &model.Recipe{ID: id}, nil
}

func (m *mockBackend) CreateRecipe(ctx context.Context, in model.RecipeInput) (*model.Recipe, error) {
	if m.createRecipeFn != nil {
		return m.createRecipeFn(ctx, in)
	}
	return &model.Recipe{}, nil
}

func (m *mockBackend) UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (*model.Recipe, error) {
	if m.updateRecipeFn != nil {
		return m.updateRecipeFn(ctx, id, in)
	}
	return &model.Recipe{ID: id}, nil
}

func (m *mockBackend) DeleteRecipe(ctx context.Context, id int64) error {
	if m.deleteRecipeFn != nil {
		return m.deleteRecipeFn(ctx, id)
	}
	return nil
}

func (m *mockBackend) GenerateCustomRecipe(ctx context.Context, req model.CustomRecipeRequest) (*model.CustomRecipeResponse, error) {
	if m.generateCustomRecipeFn != nil {
		return m.generateCustomRecipeFn(ctx, req)
	}
	return &model.CustomRecipeResponse{}, nil
}

func (m *mockBackend) GetPreferences(ctx context.Context) (*model.UserPreferences, error) {
	if m.getPreferencesFn != nil {
		return m.getPreferencesFn(ctx)
	}
	return &model.UserPreferences{}, nil
}

func (m *mockBackend) UpdatePreferences(ctx context.Context, in model.UserPreferencesUpdate) (*model.UserPreferences, error) {
	if m.updatePreferencesFn != nil {
		return m.updatePreferencesFn(ctx, in)
	}
	return &model.UserPreferences{}, nil
}

func (m *mockBackend) GetPreferenceOptions(ctx context.Context) (*model.PreferenceOptions, error) {
	if m.getPreferenceOptionsFn != nil {
		return m.getPreferenceOptionsFn(ctx)
	}
	return &model.PreferenceOptions{}, nil
}

func (m *mockBackend) GetRecommendations(ctx context.Context, params model.RecommendationParams) (*model.Recommendations, error) {
	if m.getRecommendationsFn != nil {
		return m.getRecommendationsFn(ctx, params)
	}
	return &model.Recommendations{}, nil
}

// --- ヘルパー ---

// testIdentity はテストで使うログイン済みユーザー。
var testIdentity = &model.Identity{ID: 7, Email: "ana@example.com", Name: "Ana Souza", Token: "backend-token"}

// withIdentity はテスト用にゲートの解決結果を注入するヘルパー。
func withIdentity(r *http.Request, identity *model.Identity) *http.Request {
	return r.WithContext(middleware.ContextWithIdentity(r.Context(), identity))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeDetail はレスポンスボディの {detail} を取り出すヘルパー。
func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.DetailBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body.Detail
}

// newTestRenderer はサニタイザー付きの本物のRendererを生成する。
func newTestRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	pages, err := view.NewRenderer(security.NewContentSanitizer())
	if err != nil {
		t.Fatalf("NewRenderer がエラーを返した: %v", err)
	}
	return pages
}
