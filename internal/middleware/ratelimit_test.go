package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/planeats/web/internal/model"
)

type mockRateLimitRecorder struct {
	types []string
}

func (m *mockRateLimitRecorder) RecordRateLimited(limitType string) {
	m.types = append(m.types, limitType)
}

func testRateLimiterConfig(generalBurst, aiBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1, // 1 req/sec
		GeneralBurst:    generalBurst,
		AIRate:          rate1PerMinute,
		AIBurst:         aiBurst,
		CleanupInterval: 1 * time.Minute,
	}
}

const rate1PerMinute = 1.0 / 60.0

// requestAs はユーザーIDを持つIdentityをコンテキストに注入したリクエストを生成する。
func requestAs(method, path string, userID int64) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{ID: userID, Token: "t"}))
}

func statusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// --- API全般 ---

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(5, 10), nil)
	defer rl.Stop()

	handlerCallCount := 0
	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(http.MethodGet, "/api/pantry/items", 1))

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rec := &mockRateLimitRecorder{}
	rl := NewRateLimiter(testRateLimiterConfig(1, 10), rec)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(statusHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestAs(http.MethodGet, "/api/recipes", 2))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(http.MethodGet, "/api/recipes", 2))

	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	retrySeconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || retrySeconds < 1 {
		t.Errorf("Retry-After = %q, want a number >= 1", resp.Header.Get("Retry-After"))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	if got := decodeDetail(t, w); got != rateLimitMessage {
		t.Errorf("detail = %q, want %q", got, rateLimitMessage)
	}
	if len(rec.types) != 1 || rec.types[0] != "general" {
		t.Errorf("recorded = %v, want [general]", rec.types)
	}
}

func TestRateLimitMiddleware_IsolatesUserRateLimits(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 10), nil)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(statusHandler())

	wA := httptest.NewRecorder()
	handler.ServeHTTP(wA, requestAs(http.MethodGet, "/api/me", 10))
	if wA.Code != http.StatusOK {
		t.Errorf("user-A first request: status = %d, want %d", wA.Code, http.StatusOK)
	}

	wA2 := httptest.NewRecorder()
	handler.ServeHTTP(wA2, requestAs(http.MethodGet, "/api/me", 10))
	if wA2.Code != http.StatusTooManyRequests {
		t.Errorf("user-A second request: status = %d, want %d", wA2.Code, http.StatusTooManyRequests)
	}

	// ユーザーBはユーザーAのレートに影響されない
	wB := httptest.NewRecorder()
	handler.ServeHTTP(wB, requestAs(http.MethodGet, "/api/me", 11))
	if wB.Code != http.StatusOK {
		t.Errorf("user-B first request: status = %d, want %d", wB.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_NoIdentity_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(5, 10), nil)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called without identity")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pantry/items", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- AIレシピ生成 ---

func TestAIGenerationRateLimit_Returns429WhenLimitExceeded(t *testing.T) {
	rec := &mockRateLimitRecorder{}
	rl := NewRateLimiter(testRateLimiterConfig(100, 2), rec)
	defer rl.Stop()

	handler := rl.AIGenerationMiddleware()(statusHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(http.MethodPost, "/api/ai/custom-recipes", 3))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(http.MethodPost, "/api/ai/custom-recipes", 3))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 1/60 req/sec は補充まで60秒
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
	if len(rec.types) != 1 || rec.types[0] != "ai_generation" {
		t.Errorf("recorded = %v, want [ai_generation]", rec.types)
	}
}

func TestAIGenerationRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 5), nil)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(statusHandler())
	ai := rl.AIGenerationMiddleware()(statusHandler())

	// API全般のバーストを使い切る
	general.ServeHTTP(httptest.NewRecorder(), requestAs(http.MethodGet, "/api/recipes", 4))
	w := httptest.NewRecorder()
	general.ServeHTTP(w, requestAs(http.MethodGet, "/api/recipes", 4))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("general: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// AIのリミッターは独立している
	wAI := httptest.NewRecorder()
	ai.ServeHTTP(wAI, requestAs(http.MethodPost, "/api/ai/custom-recipes", 4))
	if wAI.Code != http.StatusOK {
		t.Errorf("ai: status = %d, want %d", wAI.Code, http.StatusOK)
	}

	if rl.GeneralLimiterCount() != 1 || rl.AILimiterCount() != 1 {
		t.Errorf("limiter counts = (%d, %d), want (1, 1)", rl.GeneralLimiterCount(), rl.AILimiterCount())
	}
}

// --- クリーンアップ ---

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	cfg := testRateLimiterConfig(5, 5)
	cfg.CleanupInterval = 50 * time.Millisecond // テスト用に短く

	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(statusHandler())
	handler.ServeHTTP(httptest.NewRecorder(), requestAs(http.MethodGet, "/api/me", 5))

	if rl.GeneralLimiterCount() == 0 {
		t.Fatal("expected at least one limiter entry")
	}

	// TTLはCleanupIntervalの2倍（100ms）。200ms待てば削除される
	time.Sleep(200 * time.Millisecond)

	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(), nil)
	rl.Stop()
	rl.Stop()
}

// --- ミドルウェアチェーンとの統合テスト ---

func TestRateLimitMiddleware_InChainWithGateAndCORS(t *testing.T) {
	provider := &mockProvider{identity: &model.Identity{ID: 77, Token: "t"}}

	rl := NewRateLimiter(testRateLimiterConfig(2, 10), nil)
	defer rl.Stop()

	// CORS -> Gate -> RateLimit -> Handler
	handler := NewCORSMiddleware("http://localhost:3000")(
		NewRouteGate(provider, nil)(
			rl.GeneralMiddleware()(statusHandler()),
		),
	)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pantry/items", nil))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/api/pantry/items", nil))
	if w3.Code != http.StatusTooManyRequests {
		t.Errorf("request 3: status = %d, want %d", w3.Code, http.StatusTooManyRequests)
	}
}

// --- 設定値 ---

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2.0 { // 120/60 = 2
		t.Errorf("GeneralRate = %f, want 2.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.AIRate == 0 {
		t.Error("AIRate should not be 0")
	}
	if cfg.AIBurst != 10 {
		t.Errorf("AIBurst = %d, want 10", cfg.AIBurst)
	}
}

func TestNewRateLimiterConfig_FromPerMinute(t *testing.T) {
	cfg := NewRateLimiterConfig(60, 6)

	if cfg.GeneralRate != 1.0 {
		t.Errorf("GeneralRate = %f, want 1.0", cfg.GeneralRate)
	}
	if cfg.AIRate != 0.1 {
		t.Errorf("AIRate = %f, want 0.1", cfg.AIRate)
	}
	if cfg.AIBurst != 6 {
		t.Errorf("AIBurst = %d, want 6", cfg.AIBurst)
	}
}

func TestNewRateLimiterConfig_NonPositive_UsesDefaults(t *testing.T) {
	cfg := NewRateLimiterConfig(0, -1)
	def := DefaultRateLimiterConfig()

	if cfg.GeneralBurst != def.GeneralBurst || cfg.GeneralRate != def.GeneralRate {
		t.Errorf("general = (%v, %d), want default (%v, %d)", cfg.GeneralRate, cfg.GeneralBurst, def.GeneralRate, def.GeneralBurst)
	}
	if cfg.AIBurst != def.AIBurst || cfg.AIRate != def.AIRate {
		t.Errorf("ai = (%v, %d), want default (%v, %d)", cfg.AIRate, cfg.AIBurst, def.AIRate, def.AIBurst)
	}
}
