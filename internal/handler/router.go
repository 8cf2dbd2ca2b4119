package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/session"
	"github.com/planeats/web/internal/view"
)

// Backend はルーター全体が必要とするバックエンド操作。backend.Clientが満たす。
type Backend interface {
	PantryService
	RecipeService
	AccountService
	PageBackend
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// セッションと認証
	Sessions  session.Provider
	Exchanger CredentialExchanger

	// バックエンドと表示
	Backend      Backend
	Pages        *view.Renderer
	ImageFetcher ImageFetcher

	// ミドルウェア依存
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig

	// 観測
	GateRecorder   middleware.GateRecorder
	ImageRecorder  ImageProxyRecorder
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RouteGate → CSRF → RateLimit
//
// /health、/metrics、/api/csrf-token、/static/*、/images/proxy はゲートの外に配置する。
// RateLimitはゲートがIdentityを注入した後の保護されたJSON APIとAI生成にのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.Exchanger, deps.Sessions, deps.Pages)
	pageHandler := NewPageHandler(deps.Backend, deps.Sessions, deps.Pages)
	pantryHandler := NewPantryHandler(deps.Backend)
	recipeHandler := NewRecipeHandler(deps.Backend)
	accountHandler := NewAccountHandler(deps.Backend)
	imageHandler := NewImageProxyHandler(deps.ImageFetcher, deps.ImageRecorder)

	gate := middleware.NewRouteGate(deps.Sessions, deps.GateRecorder)
	csrf := middleware.NewCSRFMiddleware(deps.CSRF)

	// 未定義のパスもゲートを通し、保護されたパスと同じく未認証ならログインへ誘導する
	r.NotFound(gate(csrf(http.HandlerFunc(pageHandler.NotFound))).ServeHTTP)

	// --- ゲート外のルート ---
	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF).ServeHTTP)
	r.Handle("/static/*", view.StaticHandler())
	r.Get("/images/proxy", imageHandler.ServeHTTP)

	// --- ゲート内のルート ---
	// 公開パスはゲートが素通しし、それ以外は未認証ならログインへ誘導する
	r.Group(func(r chi.Router) {
		r.Use(gate, csrf)

		// 公開ページ
		r.Get("/", pageHandler.Home)
		r.Get("/explorar", pageHandler.Explore)
		r.Get("/login", authHandler.LoginPage)
		r.Post("/login", authHandler.LoginSubmit)
		r.Get("/register", authHandler.RegisterPage)
		r.Post("/register", authHandler.RegisterSubmit)

		// 認証API（公開）
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/register", authHandler.Register)
			r.Get("/session", authHandler.Session)
		})

		// 保護されたページ
		r.Post("/logout", authHandler.LogoutSubmit)
		r.Get("/meu-frigorifico", pageHandler.Pantry)
		r.Post("/meu-frigorifico/{id}", pageHandler.PantryItemSubmit)
		r.Get("/adicionar-itens", pageHandler.AddItemsPage)
		r.Post("/adicionar-itens", pageHandler.AddItemsSubmit)
		r.Get("/minhas-receitas", pageHandler.MyRecipes)
		r.Post("/minhas-receitas/{id}/excluir", pageHandler.DeleteRecipeSubmit)
		r.Get("/adicionar-receita", pageHandler.NewRecipePage)
		r.Post("/adicionar-receita", pageHandler.NewRecipeSubmit)
		r.Get("/editar-receita/{id}", pageHandler.EditRecipePage)
		r.Post("/editar-receita/{id}", pageHandler.EditRecipeSubmit)
		r.Get("/receita/{id}", pageHandler.Recipe)
		r.Get("/receita-ia", pageHandler.AIRecipePage)
		r.With(deps.RateLimiter.AIGenerationMiddleware()).Post("/receita-ia", pageHandler.AIRecipeSubmit)
		r.Get("/recomendacoes", pageHandler.Recommendations)
		r.Get("/configuracoes", pageHandler.Settings)
		r.Post("/configuracoes", pageHandler.SettingsSubmit)
		r.Get("/perfil", pageHandler.Profile)

		// 保護されたJSON API
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/api/me", accountHandler.Me)

			r.Route("/api/pantry/items", func(r chi.Router) {
				r.Get("/", pantryHandler.List)
				r.Post("/", pantryHandler.Create)
				r.Get("/{id}", pantryHandler.Get)
				r.Put("/{id}", pantryHandler.Update)
				r.Delete("/{id}", pantryHandler.Delete)
			})

			r.Route("/api/recipes", func(r chi.Router) {
				r.Get("/", recipeHandler.List)
				r.Post("/", recipeHandler.Create)
				r.Get("/{id}", recipeHandler.Get)
				r.Put("/{id}", recipeHandler.Update)
				r.Delete("/{id}", recipeHandler.Delete)
			})

			// AI生成はAPI全般の制限に加えて専用の制限を適用する
			r.With(deps.RateLimiter.AIGenerationMiddleware()).Post("/api/ai/custom-recipes", recipeHandler.GenerateCustom)

			r.Get("/api/preferences", accountHandler.GetPreferences)
			r.Put("/api/preferences", accountHandler.UpdatePreferences)
			r.Get("/api/preferences/options", accountHandler.PreferenceOptions)
			r.Get("/api/recommendations", accountHandler.Recommendations)
		})
	})

	return r
}
