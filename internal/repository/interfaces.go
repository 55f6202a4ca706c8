// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/vitafeed/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はベアラートークン解決の永続化インターフェース。
type SessionRepository interface {
	// FindUserIDByToken はトークンに紐付くユーザーIDを返す。
	// トークンが存在しない、または期限切れの場合は空文字を返す。
	FindUserIDByToken(ctx context.Context, token string) (string, error)

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// FollowRepository はフォローエッジの永続化インターフェース。
// (follower_id, following_id)の順序対ごとにエッジは最大1本。
type FollowRepository interface {
	// Activate はフォローエッジを冪等にアクティブ化する。
	// エッジが存在しない場合は作成し、非アクティブの場合は再アクティブ化する。
	Activate(ctx context.Context, edge *model.FollowEdge) error

	// Deactivate はフォローエッジを非アクティブ化する。
	// エッジが存在しない場合も成功として扱う。
	Deactivate(ctx context.Context, followerID, followingID string) error

	// IsFollowing はアクティブなフォローエッジ follower → following が存在するかを返す。
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)

	// ListActiveByFollower はユーザーのアクティブなフォローエッジ一覧を
	// created_at降順で返す。
	ListActiveByFollower(ctx context.Context, followerID string) ([]*model.FollowEdge, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// Create は投稿と画像URL一覧を同一トランザクションで作成する。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Delete は指定IDの投稿を削除する。関連するpost_images、post_likesは
	// CASCADE削除される。
	Delete(ctx context.Context, id string) error

	// Like はいいねを冪等に登録し、like_countを更新する。
	Like(ctx context.Context, postID, userID string) error

	// Unlike はいいねを冪等に解除し、like_countを更新する。
	Unlike(ctx context.Context, postID, userID string) error

	// IsLikedBy は指定ユーザーが投稿にいいね済みかを返す。
	IsLikedBy(ctx context.Context, postID, userID string) (bool, error)
}
