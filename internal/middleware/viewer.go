// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/vitafeed/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// viewerIDContextKey はリクエストコンテキストにビューアIDを格納するためのキー。
var viewerIDContextKey = contextKey("viewer_id")

// ViewerResolver はベアラートークンからビューアIDを解決するインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type ViewerResolver interface {
	// FindUserIDByToken はトークンに紐付くユーザーIDを返す。
	// 解決できない場合は空文字を返す。
	FindUserIDByToken(ctx context.Context, token string) (string, error)
}

// NewViewerMiddleware はAuthorizationヘッダーのベアラートークンを
// ビューアIDに解決するミドルウェアを返す。
//
// トークンが無い、解決できない、または解決中にエラーが発生した場合は
// 匿名ビューアとしてリクエストを通す（fail open）。タイムラインは
// 匿名でも閲覧できるため、認証の強制は各ルート側で行う。
func NewViewerMiddleware(resolver ViewerResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			viewerID, err := resolver.FindUserIDByToken(r.Context(), token)
			if err != nil {
				// 解決失敗は匿名として扱う
				slog.Warn("failed to resolve viewer, treating as anonymous",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if viewerID != "" {
				ctx := context.WithValue(r.Context(), viewerIDContextKey, viewerID)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// 形式が異なる場合は空文字を返す。
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// ViewerFromContext はリクエストコンテキストからビューアIDを取得する。
// 匿名ビューアの場合は("", false)を返す。
func ViewerFromContext(ctx context.Context) (string, bool) {
	viewerID, ok := ctx.Value(viewerIDContextKey).(string)
	if !ok || viewerID == "" {
		return "", false
	}
	return viewerID, true
}

// WithViewer はビューアIDを設定したコンテキストを返す。テスト用。
func WithViewer(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerIDContextKey, viewerID)
}

// NewRequireViewerMiddleware は認証済みビューアを必須とするミドルウェアを返す。
// 匿名リクエストには401 Unauthorizedを返す。書き込み系ルートに適用する。
func NewRequireViewerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ViewerFromContext(r.Context()); !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     "UNAUTHORIZED",
					Message:  "認証が必要です。",
					Category: "auth",
					Action:   "有効なベアラートークンを指定してください。",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
