package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// tinyLimiterConfig はテスト用の少ないバーストの設定を返す。
// レートを極端に低くしてバースト消費後は必ず429になるようにする。
func tinyLimiterConfig(generalBurst, writeBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    generalBurst,
		WriteRate:       rate.Limit(0.001),
		WriteBurst:      writeBurst,
		CleanupInterval: time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, remoteAddr, viewerID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	req.RemoteAddr = remoteAddr
	if viewerID != "" {
		req = req.WithContext(WithViewer(req.Context(), viewerID))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(tinyLimiterConfig(3, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		rec := doRequest(handler, "192.0.2.1:12345", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestGeneralMiddleware_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(tinyLimiterConfig(2, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	doRequest(handler, "192.0.2.1:12345", "")
	doRequest(handler, "192.0.2.1:12345", "")
	rec := doRequest(handler, "192.0.2.1:12345", "")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429レスポンスにはRetry-Afterヘッダーが必要")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestGeneralMiddleware_PrincipalsAreIsolated(t *testing.T) {
	rl := NewRateLimiter(tinyLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// 1つ目のIPがバーストを使い切る
	doRequest(handler, "192.0.2.1:12345", "")
	if rec := doRequest(handler, "192.0.2.1:12345", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("同一IPの2回目は429であるべき, got %d", rec.Code)
	}

	// 別のIPには影響しない
	if rec := doRequest(handler, "192.0.2.2:12345", ""); rec.Code != http.StatusOK {
		t.Errorf("別IPのリクエストは通るべき, got %d", rec.Code)
	}
}

func TestGeneralMiddleware_ViewerKeyedIndependentlyOfIP(t *testing.T) {
	rl := NewRateLimiter(tinyLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// 同じIPでも認証済みビューアはビューアIDでキーされる
	doRequest(handler, "192.0.2.1:12345", "")
	if rec := doRequest(handler, "192.0.2.1:12345", "user-1"); rec.Code != http.StatusOK {
		t.Errorf("認証済みビューアは匿名IPの消費に影響されないべき, got %d", rec.Code)
	}

	// 別のビューアも独立
	if rec := doRequest(handler, "192.0.2.1:12345", "user-2"); rec.Code != http.StatusOK {
		t.Errorf("別ビューアのリクエストは通るべき, got %d", rec.Code)
	}
}

func TestWriteMiddleware_IndependentFromGeneral(t *testing.T) {
	rl := NewRateLimiter(tinyLimiterConfig(10, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	write := rl.WriteMiddleware()(okHandler())

	// 書き込み系のバーストを使い切る
	doRequest(write, "192.0.2.1:12345", "user-1")
	if rec := doRequest(write, "192.0.2.1:12345", "user-1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("書き込み系の2回目は429であるべき, got %d", rec.Code)
	}

	// API全般のレート制限には影響しない
	if rec := doRequest(general, "192.0.2.1:12345", "user-1"); rec.Code != http.StatusOK {
		t.Errorf("書き込み系の消費はAPI全般に影響しないべき, got %d", rec.Code)
	}
}

func TestRateLimiter_TracksPrincipals(t *testing.T) {
	rl := NewRateLimiter(tinyLimiterConfig(10, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	doRequest(handler, "192.0.2.1:12345", "")
	doRequest(handler, "192.0.2.2:12345", "")
	doRequest(handler, "192.0.2.1:54321", "user-1")

	// ip:192.0.2.1, ip:192.0.2.2, viewer:user-1 の3エントリ
	if count := rl.GeneralLimiterCount(); count != 3 {
		t.Errorf("GeneralLimiterCount() = %d, want 3", count)
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	cfg := tinyLimiterConfig(10, 10)
	cfg.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	doRequest(handler, "192.0.2.1:12345", "")

	if count := rl.GeneralLimiterCount(); count != 1 {
		t.Fatalf("GeneralLimiterCount() = %d, want 1", count)
	}

	// TTL（CleanupInterval×2）経過後にエントリが削除されること
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("アイドルエントリがクリーンアップされなかった")
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.WriteBurst != 20 {
		t.Errorf("WriteBurst = %d, want 20", cfg.WriteBurst)
	}
	// 120 req/min = 2 req/sec
	if cfg.GeneralRate != rate.Limit(2) {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
}
