// Package post は投稿の作成・取得・削除・いいね機能を提供する。
package post

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/vitafeed/internal/model"
	"github.com/hitoshi/vitafeed/internal/repository"
)

const (
	// maxContentLength は投稿本文の最大文字数。
	maxContentLength = 5000
	// maxImages は1投稿あたりの画像URL最大数。
	maxImages = 4
)

// Service は投稿管理のサービス。
type Service struct {
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	sanitizer  *bluemonday.Policy
}

// NewService はServiceの新しいインスタンスを生成する。
// 投稿本文はUGCポリシーでサニタイズされ、保存時点で安全なHTMLになる。
func NewService(postRepo repository.PostRepository, followRepo repository.FollowRepository) *Service {
	return &Service{
		postRepo:   postRepo,
		followRepo: followRepo,
		sanitizer:  bluemonday.UGCPolicy(),
	}
}

// CreateInput は投稿作成の入力。
type CreateInput struct {
	Content    string
	Visibility model.Visibility
	Images     []string
}

// CreatePost は新しい投稿を作成する。
// 本文はサニタイズしてから保存する。
func (s *Service) CreatePost(ctx context.Context, userID string, in CreateInput) (*model.Post, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, model.NewInvalidRequestError("contentは必須です")
	}
	if len([]rune(in.Content)) > maxContentLength {
		return nil, model.NewInvalidRequestError("contentが長すぎます")
	}
	if !model.IsValidVisibility(in.Visibility) {
		return nil, model.NewInvalidVisibilityError(string(in.Visibility))
	}
	if len(in.Images) > maxImages {
		return nil, model.NewInvalidRequestError("画像は4枚までです")
	}

	now := time.Now().UTC()
	post := &model.Post{
		ID:         uuid.NewString(),
		UserID:     userID,
		Content:    s.sanitizer.Sanitize(in.Content),
		Visibility: in.Visibility,
		Images:     in.Images,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// PostDetail は投稿詳細とビューアごとのいいね状態。
type PostDetail struct {
	model.Post
	IsLikedByCurrentUser bool
}

// GetPost は投稿詳細をビューアの閲覧権限チェック付きで返す。
// 閲覧権限のない投稿は存在を秘匿するためPOST_NOT_FOUNDを返す。
// viewerIDが空文字の場合は匿名ビューアとして扱う。
func (s *Service) GetPost(ctx context.Context, viewerID, postID string) (*PostDetail, error) {
	post, err := s.findViewable(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}

	liked := false
	if viewerID != "" {
		liked, err = s.postRepo.IsLikedBy(ctx, postID, viewerID)
		if err != nil {
			return nil, err
		}
	}

	return &PostDetail{Post: *post, IsLikedByCurrentUser: liked}, nil
}

// DeletePost は投稿を削除する。所有者のみ実行できる。
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}
	if post.UserID != userID {
		return model.NewForbiddenError()
	}

	return s.postRepo.Delete(ctx, postID)
}

// Like は閲覧可能な投稿にいいねを冪等に登録する。
func (s *Service) Like(ctx context.Context, userID, postID string) error {
	if _, err := s.findViewable(ctx, userID, postID); err != nil {
		return err
	}
	return s.postRepo.Like(ctx, postID, userID)
}

// Unlike は投稿のいいねを冪等に解除する。
func (s *Service) Unlike(ctx context.Context, userID, postID string) error {
	if _, err := s.findViewable(ctx, userID, postID); err != nil {
		return err
	}
	return s.postRepo.Unlike(ctx, postID, userID)
}

// findViewable は投稿を取得し、ビューアの閲覧権限を解決する。
// 不可視の場合は存在秘匿のためPOST_NOT_FOUNDを返す。
func (s *Service) findViewable(ctx context.Context, viewerID, postID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	visible, err := s.canView(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, model.NewPostNotFoundError(postID)
	}

	return post, nil
}

// canView は公開範囲の解決ルールを適用する。
//  1. private:        所有者のみ
//  2. public:         全員
//  3. followers_only: 所有者、またはアクティブにフォロー中のビューア
func (s *Service) canView(ctx context.Context, viewerID string, post *model.Post) (bool, error) {
	if post.UserID == viewerID && viewerID != "" {
		return true, nil
	}

	switch post.Visibility {
	case model.VisibilityPublic:
		return true, nil
	case model.VisibilityFollowersOnly:
		if viewerID == "" {
			return false, nil
		}
		return s.followRepo.IsFollowing(ctx, viewerID, post.UserID)
	default: // model.VisibilityPrivate
		return false, nil
	}
}
