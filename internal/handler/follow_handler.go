package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/vitafeed/internal/follow"
	"github.com/hitoshi/vitafeed/internal/middleware"
)

// FollowService はフォロー管理サービスのインターフェース。
type FollowService interface {
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	ListFollowing(ctx context.Context, followerID string) ([]follow.FolloweeSummary, error)
}

// FollowHandler はフォローAPIのハンドラ。
type FollowHandler struct {
	service FollowService
}

// NewFollowHandler はFollowHandlerの新しいインスタンスを生成する。
func NewFollowHandler(service FollowService) *FollowHandler {
	return &FollowHandler{service: service}
}

// Follow はPOST /api/users/{id}/followを処理する。認証必須。冪等。
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	if err := h.service.Follow(r.Context(), viewerID, targetID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow はDELETE /api/users/{id}/followを処理する。認証必須。冪等。
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	if err := h.service.Unfollow(r.Context(), viewerID, targetID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// followeeResponse はフォロー中ユーザー一覧の1エントリのJSON表現。
type followeeResponse struct {
	UserID     string `json:"user_id"`
	FollowedAt string `json:"followed_at"`
}

// followListResponse はGET /api/followsのレスポンスボディ。
type followListResponse struct {
	Following []followeeResponse `json:"following"`
}

// ListFollowing はGET /api/followsを処理する。認証必須。
// ビューアがアクティブにフォローしているユーザー一覧を返す。
func (h *FollowHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())

	followees, err := h.service.ListFollowing(r.Context(), viewerID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	entries := make([]followeeResponse, len(followees))
	for i, f := range followees {
		entries[i] = followeeResponse{
			UserID:     f.UserID,
			FollowedAt: f.FollowedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(followListResponse{Following: entries})
}
