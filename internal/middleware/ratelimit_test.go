package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// testRateLimiterConfig はテスト用の小さいバーストを持つ設定を返す。
func testRateLimiterConfig(generalBurst, writeBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		WriteRate:       rate.Limit(0.001),
		WriteBurst:      writeBurst,
		CleanupInterval: time.Hour,
		IdleExpiry:      time.Hour,
	}
}

// doRequest は指定ユーザーIDでミドルウェアを1回通す。
func doRequest(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != "" {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// TestRateLimiter_GeneralAllowsWithinBurst はバースト以内のリクエストが通過することを検証する。
func TestRateLimiter_GeneralAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		if w := doRequest(handler, "user-1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

// TestRateLimiter_GeneralRejectsOverBurst はバースト超過が429になることを検証する。
func TestRateLimiter_GeneralRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest(handler, "user-1")
	doRequest(handler, "user-1")

	w := doRequest(handler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}

// TestRateLimiter_PerUserIsolation はユーザーごとに独立したリミッターを持つことを検証する。
func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// user-1 がバーストを使い切る
	doRequest(handler, "user-1")
	if w := doRequest(handler, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("user-1 second request: status = %d, want 429", w.Code)
	}

	// user-2 は影響を受けない
	if w := doRequest(handler, "user-2"); w.Code != http.StatusOK {
		t.Errorf("user-2 first request: status = %d, want 200", w.Code)
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("limiter count = %d, want 2", rl.GeneralLimiterCount())
	}
}

// TestRateLimiter_WriteIndependentOfGeneral は書き込み系リミッターが独立に動作することを検証する。
func TestRateLimiter_WriteIndependentOfGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	write := rl.WriteMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	// 書き込みバースト（1）を使い切る
	if w := doRequest(write, "user-1"); w.Code != http.StatusCreated {
		t.Fatalf("first write: status = %d, want 201", w.Code)
	}
	if w := doRequest(write, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second write: status = %d, want 429", w.Code)
	}

	// 書き込み上限に達してもAPI全般は通る
	if w := doRequest(general, "user-1"); w.Code != http.StatusOK {
		t.Errorf("general after write limit: status = %d, want 200", w.Code)
	}
}

// TestRateLimiter_NoUserInContext は未認証コンテキストが401になることを検証する。
// レート制限ミドルウェアは認証ミドルウェアの内側に配置される前提。
func TestRateLimiter_NoUserInContext(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(5, 5))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if w := doRequest(handler, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// TestLimiterSet_CleanupRemovesIdleEntries は期限切れエントリがクリーンアップされることを検証する。
func TestLimiterSet_CleanupRemovesIdleEntries(t *testing.T) {
	set := newLimiterSet(rate.Limit(1), 1)

	set.getOrCreate("user-1")
	set.getOrCreate("user-2")
	if set.count() != 2 {
		t.Fatalf("count = %d, want 2", set.count())
	}

	// 経過時間0でのクリーンアップは全エントリを破棄する
	set.cleanup(0)
	if set.count() != 0 {
		t.Errorf("count after cleanup = %d, want 0", set.count())
	}
}

// TestLimiterSet_GetOrCreateReusesEntry は同一キーでリミッターが再利用されることを検証する。
func TestLimiterSet_GetOrCreateReusesEntry(t *testing.T) {
	set := newLimiterSet(rate.Limit(1), 1)

	first := set.getOrCreate("user-1")
	second := set.getOrCreate("user-1")

	if first != second {
		t.Error("same key should return the same limiter instance")
	}
	if set.count() != 1 {
		t.Errorf("count = %d, want 1", set.count())
	}
}

// TestNewRateLimiterConfig は req/min からの変換を検証する。
func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 30)

	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.WriteBurst != 30 {
		t.Errorf("WriteBurst = %d, want 30", cfg.WriteBurst)
	}
	if cfg.GeneralRate != rate.Limit(2) {
		t.Errorf("GeneralRate = %v, want 2 req/sec", cfg.GeneralRate)
	}
	if cfg.WriteRate != rate.Limit(0.5) {
		t.Errorf("WriteRate = %v, want 0.5 req/sec", cfg.WriteRate)
	}
}
