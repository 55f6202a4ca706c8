package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/vitafeed/internal/middleware"
	"github.com/hitoshi/vitafeed/internal/model"
	"github.com/hitoshi/vitafeed/internal/post"
)

// PostService は投稿管理サービスのインターフェース。
type PostService interface {
	CreatePost(ctx context.Context, userID string, in post.CreateInput) (*model.Post, error)
	GetPost(ctx context.Context, viewerID, postID string) (*post.PostDetail, error)
	DeletePost(ctx context.Context, userID, postID string) error
	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error
}

// PostHandler は投稿APIのハンドラ。
type PostHandler struct {
	service PostService
}

// NewPostHandler はPostHandlerの新しいインスタンスを生成する。
func NewPostHandler(service PostService) *PostHandler {
	return &PostHandler{service: service}
}

// createPostRequest はPOST /api/postsのリクエストボディ。
type createPostRequest struct {
	Content    string   `json:"content"`
	Visibility string   `json:"visibility"`
	Images     []string `json:"images"`
}

// postResponse は投稿1件のJSON表現。
type postResponse struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"user_id"`
	Content              string   `json:"content"`
	Visibility           string   `json:"visibility"`
	LikeCount            int      `json:"like_count"`
	CommentCount         int      `json:"comment_count"`
	IsLikedByCurrentUser bool     `json:"is_liked_by_current_user"`
	Images               []string `json:"images"`
	CreatedAt            string   `json:"created_at"`
	UpdatedAt            string   `json:"updated_at"`
}

func newPostResponse(p *model.Post, isLiked bool) postResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return postResponse{
		ID:                   p.ID,
		UserID:               p.UserID,
		Content:              p.Content,
		Visibility:           string(p.Visibility),
		LikeCount:            p.LikeCount,
		CommentCount:         p.CommentCount,
		IsLikedByCurrentUser: isLiked,
		Images:               images,
		CreatedAt:            p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:            p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// CreatePost はPOST /api/postsを処理する。認証必須。
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}

	created, err := h.service.CreatePost(r.Context(), viewerID, post.CreateInput{
		Content:    req.Content,
		Visibility: model.Visibility(req.Visibility),
		Images:     req.Images,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(newPostResponse(created, false))
}

// GetPost はGET /api/posts/{id}を処理する。匿名アクセス可。
// 閲覧権限のない投稿は404を返す。
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())
	postID := chi.URLParam(r, "id")

	detail, err := h.service.GetPost(r.Context(), viewerID, postID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(newPostResponse(&detail.Post, detail.IsLikedByCurrentUser))
}

// DeletePost はDELETE /api/posts/{id}を処理する。所有者のみ。
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())
	postID := chi.URLParam(r, "id")

	if err := h.service.DeletePost(r.Context(), viewerID, postID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LikePost はPOST /api/posts/{id}/likeを処理する。冪等。
func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())
	postID := chi.URLParam(r, "id")

	if err := h.service.Like(r.Context(), viewerID, postID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnlikePost はDELETE /api/posts/{id}/likeを処理する。冪等。
func (h *PostHandler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())
	postID := chi.URLParam(r, "id")

	if err := h.service.Unlike(r.Context(), viewerID, postID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
