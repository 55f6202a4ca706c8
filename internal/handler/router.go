package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/vitafeed/internal/middleware"
)

// RouterConfig はルーター構築に必要な依存をまとめる。
type RouterConfig struct {
	TimelineHandler *TimelineHandler
	PostHandler     *PostHandler
	FollowHandler   *FollowHandler

	ViewerResolver middleware.ViewerResolver
	RateLimiter    *middleware.RateLimiter
	Logger         *slog.Logger
	StatusRecorder middleware.StatusRecorder

	CORSAllowedOrigin string
}

// NewRouter はAPIルーターを構築する。
//
// ミドルウェアは CORS → セキュリティヘッダー → recovery → ロギング →
// ビューア解決 → レート制限 の順に適用する。ビューア解決をレート制限より
// 先に行うことで、認証済みリクエストはビューアID単位で制限される。
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(cfg.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger, cfg.StatusRecorder))
	r.Use(middleware.NewViewerMiddleware(cfg.ViewerResolver))
	r.Use(cfg.RateLimiter.GeneralMiddleware())

	requireViewer := middleware.NewRequireViewerMiddleware()
	writeLimit := cfg.RateLimiter.WriteMiddleware()

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		// タイムラインは匿名でも閲覧可能
		r.Get("/timeline", cfg.TimelineHandler.GetTimeline)

		r.Route("/posts", func(r chi.Router) {
			// 個別投稿の閲覧も匿名可（公開範囲はサービス層で解決）
			r.Get("/{id}", cfg.PostHandler.GetPost)

			r.Group(func(r chi.Router) {
				r.Use(requireViewer)
				r.With(writeLimit).Post("/", cfg.PostHandler.CreatePost)
				r.Delete("/{id}", cfg.PostHandler.DeletePost)
				r.Post("/{id}/like", cfg.PostHandler.LikePost)
				r.Delete("/{id}/like", cfg.PostHandler.UnlikePost)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireViewer)
			r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
			r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)
			r.Get("/follows", cfg.FollowHandler.ListFollowing)
		})
	})

	return r
}

// handleHealth はGET /healthを処理する。死活監視用。
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
