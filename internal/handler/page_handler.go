package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/model"
	"github.com/planeats/web/internal/session"
	"github.com/planeats/web/internal/view"
)

// pantryPageLimit はページに表示するパントリー食材の最大件数。
const pantryPageLimit = 100

// PageBackend はページハンドラーが必要とするバックエンド操作のインターフェース。
type PageBackend interface {
	Me(ctx context.Context) (*model.UserProfile, error)
	ListPantryItems(ctx context.Context, skip, limit int) ([]model.PantryItem, error)
	ListRecipes(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*model.Recipe, error)
	CreatePantryItem(ctx context.Context, in model.PantryItemCreate) (*model.PantryItem, error)
	UpdatePantryItem(ctx context.Context, id int64, in model.PantryItemUpdate) (*model.PantryItem, error)
	DeletePantryItem(ctx context.Context, id int64) error
	CreateRecipe(ctx context.Context, in model.RecipeInput) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
	GenerateCustomRecipe(ctx context.Context, req model.CustomRecipeRequest) (*model.CustomRecipeResponse, error)
	GetPreferences(ctx context.Context) (*model.UserPreferences, error)
	UpdatePreferences(ctx context.Context, in model.UserPreferencesUpdate) (*model.UserPreferences, error)
	GetPreferenceOptions(ctx context.Context) (*model.PreferenceOptions, error)
	GetRecommendations(ctx context.Context, params model.RecommendationParams) (*model.Recommendations, error)
}

// PageHandler はサーバーレンダリングするページのHTTPハンドラー。
type PageHandler struct {
	backend  PageBackend
	sessions session.Provider
	pages    *view.Renderer
	now      func() time.Time
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(backend PageBackend, sessions session.Provider, pages *view.Renderer) *PageHandler {
	return &PageHandler{
		backend:  backend,
		sessions: sessions,
		pages:    pages,
		now:      time.Now,
	}
}

// newPage はリクエストコンテキストのIdentityとCSRFトークンから共通ページデータを作る。
func newPage(r *http.Request, title string, data any) *view.Page {
	identity, _ := middleware.IdentityFromContext(r.Context())
	return &view.Page{
		Title:     title,
		Path:      r.URL.Path,
		Identity:  identity,
		CSRFToken: middleware.CSRFToken(r.Context()),
		Data:      data,
	}
}

type errorPageData struct {
	Message string
}

// failureMessage はバックエンドのエラーを表示用のステータスとメッセージに変換する。
func failureMessage(err error) (int, string) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Message
	}
	var be *model.BackendError
	if errors.As(err, &be) {
		return be.Status, be.Detail
	}
	slog.Error("backend unavailable", slog.String("error", err.Error()))
	return http.StatusBadGateway, model.MsgBackendUnavailable
}

// handleError はページ表示中のエラーを処理する。
// バックエンドがトークンを拒否した場合はセッションを破棄してログインへ誘導する。
func (h *PageHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, model.ErrNotAuthenticated) {
		h.clearRejectedSession(w, r)
		http.Redirect(w, r, middleware.LoginRedirectURL(r.URL), http.StatusFound)
		return
	}

	status, msg := failureMessage(err)
	title := "Algo deu errado"
	if status == http.StatusNotFound {
		title = "Não encontrado"
	}
	h.pages.Render(w, status, "error", newPage(r, title, errorPageData{Message: msg}))
}

// clearRejectedSession はバックエンドがトークンを拒否したセッションを破棄する。
func (h *PageHandler) clearRejectedSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		slog.Error("failed to sign out rejected session", slog.String("error", err.Error()))
	}
}

// NotFound は存在しないページの404を表示する。/api/ 配下はJSONで返す。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		middleware.WriteDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	h.pages.Render(w, http.StatusNotFound, "error",
		newPage(r, "Não encontrado", errorPageData{Message: "A página que você procura não existe."}))
}

// Home はトップページを表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "home", newPage(r, "", nil))
}

// --- レシピ一覧 ---

type recipeFilterForm struct {
	MaxCalories string
	MaxPrepTime string
	Ingredients string
}

type recipesPageData struct {
	Heading     string
	Intro       string
	Recipes     []model.Recipe
	Filter      recipeFilterForm
	ShowFilters bool
	LoginPrompt bool
	// Manage はカードに編集・削除の操作を表示する（自分のレシピ一覧のみ）
	Manage bool
}

// recipeFilterFromQuery はクエリパラメータからレシピの絞り込み条件を組み立てる。
func recipeFilterFromQuery(r *http.Request) (model.RecipeFilter, recipeFilterForm) {
	q := r.URL.Query()
	form := recipeFilterForm{
		MaxCalories: q.Get("max_calories"),
		MaxPrepTime: q.Get("max_prep_time"),
		Ingredients: q.Get("ingredients"),
	}

	filter := model.RecipeFilter{
		MaxCalories: queryInt(r, "max_calories"),
		MaxPrepTime: queryInt(r, "max_prep_time"),
		Skip:        queryInt(r, "skip"),
		Limit:       queryInt(r, "limit"),
	}
	for _, ing := range strings.Split(form.Ingredients, ",") {
		if ing = strings.TrimSpace(ing); ing != "" {
			filter.Ingredients = append(filter.Ingredients, ing)
		}
	}
	return filter, form
}

// Explore は全レシピを表示する。未ログイン、またはトークンが拒否された場合はログインを促す。
// GET /explorar
func (h *PageHandler) Explore(w http.ResponseWriter, r *http.Request) {
	data := recipesPageData{
		Heading:     "Explorar receitas",
		Intro:       "Descubra receitas da comunidade PlanEats.",
		ShowFilters: true,
	}

	if _, ok := middleware.IdentityFromContext(r.Context()); !ok {
		data.LoginPrompt = true
		h.pages.Render(w, http.StatusOK, "recipes", newPage(r, "Explorar", data))
		return
	}

	filter, form := recipeFilterFromQuery(r)
	recipes, err := h.backend.ListRecipes(r.Context(), filter)
	if errors.Is(err, model.ErrNotAuthenticated) {
		// 公開ページのためログインへ遷移せず、未ログインとしてその場で表示する
		h.clearRejectedSession(w, r)
		data.LoginPrompt = true
		page := newPage(r, "Explorar", data)
		page.Identity = nil
		h.pages.Render(w, http.StatusOK, "recipes", page)
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	data.Recipes = recipes
	data.Filter = form
	h.pages.Render(w, http.StatusOK, "recipes", newPage(r, "Explorar", data))
}

// MyRecipes はログインユーザーが作成したレシピを表示する。
// GET /minhas-receitas
func (h *PageHandler) MyRecipes(w http.ResponseWriter, r *http.Request) {
	var notice string
	switch {
	case r.URL.Query().Get("updated") != "":
		notice = msgRecipeUpdated
	case r.URL.Query().Get("deleted") != "":
		notice = msgRecipeDeleted
	}
	h.renderMyRecipes(w, r, http.StatusOK, notice, "")
}

// renderMyRecipes は自分のレシピ一覧をメッセージ付きで表示する。
// 削除フォームの送信先から呼ばれてもフォームの送信先は一覧のパスに固定する。
func (h *PageHandler) renderMyRecipes(w http.ResponseWriter, r *http.Request, status int, notice, errMsg string) {
	filter, form := recipeFilterFromQuery(r)
	filter.UserCreatedOnly = true

	recipes, err := h.backend.ListRecipes(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page := newPage(r, "Minhas Receitas", recipesPageData{
		Heading:     "Minhas Receitas",
		Intro:       "Receitas que você criou.",
		Recipes:     recipes,
		Filter:      form,
		ShowFilters: true,
		Manage:      true,
	})
	page.Path = myRecipesPath
	page.Notice = notice
	page.Error = errMsg
	h.pages.Render(w, status, "recipes", page)
}

type recipePageData struct {
	Recipe *model.Recipe
	// CanEdit はログインユーザーが作成者の場合にtrue
	CanEdit bool
}

// Recipe はレシピ詳細を表示する。
// GET /receita/{id}
func (h *PageHandler) Recipe(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	recipe, err := h.backend.GetRecipe(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	data := recipePageData{Recipe: recipe}
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok && recipe.CreatedByUserID != nil {
		data.CanEdit = *recipe.CreatedByUserID == identity.ID
	}
	page := newPage(r, recipe.Name, data)
	if r.URL.Query().Get("created") != "" {
		page.Notice = msgRecipeCreated
	}
	h.pages.Render(w, http.StatusOK, "recipe", page)
}

// --- AIレシピ生成 ---

type aiRecipeForm struct {
	MaxCalories          string
	PreparationTimeLimit string
	DietaryRestrictions  string
	CuisinePreference    string
	AdditionalNotes      string
}

type aiPantryOption struct {
	Item    model.PantryItem
	Checked bool
}

type aiRecipePageData struct {
	Items  []aiPantryOption
	Form   aiRecipeForm
	Result *model.CustomRecipeResponse
}

func newAIRecipePageData(items []model.PantryItem, selected []int64, form aiRecipeForm) aiRecipePageData {
	checked := make(map[int64]bool, len(selected))
	for _, id := range selected {
		checked[id] = true
	}
	options := make([]aiPantryOption, 0, len(items))
	for _, item := range items {
		options = append(options, aiPantryOption{Item: item, Checked: checked[item.ID]})
	}
	return aiRecipePageData{Items: options, Form: form}
}

// AIRecipePage はAIレシピ生成フォームを表示する。
// GET /receita-ia
func (h *PageHandler) AIRecipePage(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend.ListPantryItems(r.Context(), 0, pantryPageLimit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.pages.Render(w, http.StatusOK, "ai_recipe",
		newPage(r, "Receita IA", newAIRecipePageData(items, nil, aiRecipeForm{})))
}

// AIRecipeSubmit はフォームの条件でAIレシピを生成して表示する。
// 生成結果は保存せず、このレスポンスでのみ表示する。
// POST /receita-ia
func (h *PageHandler) AIRecipeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.handleError(w, r, &model.ValidationError{Message: "Formulário inválido"})
		return
	}

	form := aiRecipeForm{
		MaxCalories:          strings.TrimSpace(r.PostForm.Get("max_calories")),
		PreparationTimeLimit: strings.TrimSpace(r.PostForm.Get("preparation_time_limit")),
		DietaryRestrictions:  strings.TrimSpace(r.PostForm.Get("dietary_restrictions")),
		CuisinePreference:    strings.TrimSpace(r.PostForm.Get("cuisine_preference")),
		AdditionalNotes:      strings.TrimSpace(r.PostForm.Get("additional_notes")),
	}

	var selected []int64
	for _, raw := range r.PostForm["pantry_item_ids"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			selected = append(selected, id)
		}
	}

	req := model.CustomRecipeRequest{
		PantryItemIDs:        selected,
		MaxCalories:          optionalInt(form.MaxCalories),
		PreparationTimeLimit: optionalInt(form.PreparationTimeLimit),
		DietaryRestrictions:  optionalString(form.DietaryRestrictions),
		CuisinePreference:    optionalString(form.CuisinePreference),
		AdditionalNotes:      optionalString(form.AdditionalNotes),
	}

	result, genErr := h.backend.GenerateCustomRecipe(r.Context(), req)
	if errors.Is(genErr, model.ErrNotAuthenticated) {
		h.handleError(w, r, genErr)
		return
	}

	items, err := h.backend.ListPantryItems(r.Context(), 0, pantryPageLimit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	data := newAIRecipePageData(items, selected, form)
	page := newPage(r, "Receita IA", data)
	if genErr != nil {
		status, msg := failureMessage(genErr)
		page.Error = msg
		h.pages.Render(w, status, "ai_recipe", page)
		return
	}

	data.Result = result
	page.Data = data
	h.pages.Render(w, http.StatusOK, "ai_recipe", page)
}

// --- おすすめ ---

type sortOption struct {
	Value string
	Label string
}

var recommendationSortOptions = []sortOption{
	{Value: "match_score", Label: "Compatibilidade"},
	{Value: "preparation_time", Label: "Tempo de preparo"},
	{Value: "calories", Label: "Calorias"},
	{Value: "expiring_ingredients", Label: "Ingredientes a vencer"},
}

type recommendationForm struct {
	MaxPreparationTime    string
	MaxCalories           string
	MaxMissingIngredients string
	SortBy                string
	UsePreferences        bool
}

type recommendationsPageData struct {
	Form        recommendationForm
	SortOptions []sortOption
	Result      *model.Recommendations
}

// recommendationParamsFromQuery はクエリパラメータからおすすめ取得条件を組み立てる。
// 未知のsort_byは無視する。
func recommendationParamsFromQuery(r *http.Request) (model.RecommendationParams, recommendationForm) {
	q := r.URL.Query()
	params := model.RecommendationParams{
		MaxPreparationTime:    queryInt(r, "max_preparation_time"),
		MaxCalories:           queryInt(r, "max_calories"),
		MaxMissingIngredients: queryInt(r, "max_missing_ingredients"),
		UsePreferences:        queryBool(r, "use_preferences"),
	}
	for _, opt := range recommendationSortOptions {
		if q.Get("sort_by") == opt.Value {
			params.SortBy = opt.Value
		}
	}
	switch q.Get("sort_order") {
	case "asc", "desc":
		params.SortOrder = q.Get("sort_order")
	}

	form := recommendationForm{
		MaxPreparationTime:    q.Get("max_preparation_time"),
		MaxCalories:           q.Get("max_calories"),
		MaxMissingIngredients: q.Get("max_missing_ingredients"),
		SortBy:                params.SortBy,
		UsePreferences:        params.UsePreferences,
	}
	return params, form
}

// Recommendations はパントリーに基づくおすすめレシピを表示する。
// GET /recomendacoes
func (h *PageHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	params, form := recommendationParamsFromQuery(r)

	result, err := h.backend.GetRecommendations(r.Context(), params)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.pages.Render(w, http.StatusOK, "recommendations", newPage(r, "Receitas Sugeridas", recommendationsPageData{
		Form:        form,
		SortOptions: recommendationSortOptions,
		Result:      result,
	}))
}

// --- 設定 ---

type settingsPageData struct {
	CalorieGoal  string
	Restrictions []string
	Options      *model.PreferenceOptions
}

// loadSettings は設定フォームの表示データを取得する。
// 設定が未作成（404）の場合は空の設定として扱う。
func (h *PageHandler) loadSettings(ctx context.Context) (settingsPageData, error) {
	data := settingsPageData{Options: &model.PreferenceOptions{}}

	prefs, err := h.backend.GetPreferences(ctx)
	var be *model.BackendError
	switch {
	case err == nil:
		if prefs.DailyCalorieGoal != nil {
			data.CalorieGoal = strconv.Itoa(*prefs.DailyCalorieGoal)
		}
		data.Restrictions = prefs.DietaryRestrictions
	case errors.As(err, &be) && be.Status == http.StatusNotFound:
	default:
		return data, err
	}

	options, err := h.backend.GetPreferenceOptions(ctx)
	if err != nil {
		return data, err
	}
	data.Options = options
	return data, nil
}

// Settings はユーザー設定フォームを表示する。
// GET /configuracoes
func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	data, err := h.loadSettings(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page := newPage(r, "Configurações", data)
	if r.URL.Query().Get("saved") != "" {
		page.Notice = "Preferências guardadas."
	}
	h.pages.Render(w, http.StatusOK, "settings", page)
}

// SettingsSubmit はユーザー設定を更新する。
// POST /configuracoes
func (h *PageHandler) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.handleError(w, r, &model.ValidationError{Message: "Formulário inválido"})
		return
	}

	restrictions := r.PostForm["dietary_restrictions"]
	if restrictions == nil {
		restrictions = []string{}
	}
	update := model.UserPreferencesUpdate{DietaryRestrictions: &restrictions}

	goal := strings.TrimSpace(r.PostForm.Get("daily_calorie_goal"))
	if goal != "" {
		n, err := strconv.Atoi(goal)
		if err != nil || n < 0 {
			h.renderSettingsError(w, r, &model.ValidationError{Field: "daily_calorie_goal", Message: "Meta de calorias inválida"})
			return
		}
		update.DailyCalorieGoal = &n
	}

	if _, err := h.backend.UpdatePreferences(r.Context(), update); err != nil {
		if errors.Is(err, model.ErrNotAuthenticated) {
			h.handleError(w, r, err)
			return
		}
		h.renderSettingsError(w, r, err)
		return
	}

	http.Redirect(w, r, "/configuracoes?saved=1", http.StatusSeeOther)
}

// renderSettingsError は設定フォームをエラーメッセージ付きで再表示する。
func (h *PageHandler) renderSettingsError(w http.ResponseWriter, r *http.Request, cause error) {
	data, err := h.loadSettings(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	status, msg := failureMessage(cause)
	page := newPage(r, "Configurações", data)
	page.Error = msg
	h.pages.Render(w, status, "settings", page)
}

// --- プロフィール ---

type profilePageData struct {
	Profile *model.UserProfile
}

// Profile はログインユーザーのプロフィールを表示する。
// GET /perfil
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.backend.Me(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.pages.Render(w, http.StatusOK, "profile", newPage(r, "Perfil", profilePageData{Profile: profile}))
}

// optionalInt は空文字や不正値をnilとして整数ポインタに変換する。
func optionalInt(raw string) *int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// optionalString は空文字をnilとして文字列ポインタに変換する。
func optionalString(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}
