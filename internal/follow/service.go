// Package follow はフォローグラフの管理機能を提供する。
package follow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/vitafeed/internal/model"
	"github.com/hitoshi/vitafeed/internal/repository"
)

// Service はフォロー関係の登録・解除・照会のサービス。
type Service struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *Service {
	return &Service{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// Follow はfollowerIDからfollowingIDへのフォローエッジをアクティブ化する。
// 自己フォローはエラーではなくno-opとして扱う。
// フォロー対象が存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Follow(ctx context.Context, followerID, followingID string) error {
	// 自己フォローはno-op
	if followerID == followingID {
		return nil
	}

	target, err := s.userRepo.FindByID(ctx, followingID)
	if err != nil {
		return err
	}
	if target == nil {
		return model.NewUserNotFoundError(followingID)
	}

	now := time.Now().UTC()
	edge := &model.FollowEdge{
		ID:          uuid.NewString(),
		FollowerID:  followerID,
		FollowingID: followingID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return s.followRepo.Activate(ctx, edge)
}

// Unfollow はフォローエッジを非アクティブ化する。
// エッジが存在しない場合や自己フォロー解除も成功として扱う（冪等）。
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return nil
	}
	return s.followRepo.Deactivate(ctx, followerID, followingID)
}

// IsFollowing はアクティブなフォローエッジ follower → following が存在するかを返す。
func (s *Service) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.followRepo.IsFollowing(ctx, followerID, followingID)
}

// FolloweeSummary はフォロー中ユーザー一覧の1エントリ。
type FolloweeSummary struct {
	UserID     string
	FollowedAt time.Time
}

// ListFollowing はユーザーがアクティブにフォローしているユーザー一覧を
// フォロー日時降順で返す。
func (s *Service) ListFollowing(ctx context.Context, followerID string) ([]FolloweeSummary, error) {
	edges, err := s.followRepo.ListActiveByFollower(ctx, followerID)
	if err != nil {
		return nil, err
	}

	followees := make([]FolloweeSummary, len(edges))
	for i, edge := range edges {
		followees[i] = FolloweeSummary{
			UserID:     edge.FollowingID,
			FollowedAt: edge.CreatedAt,
		}
	}

	return followees, nil
}
