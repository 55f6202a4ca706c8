package model

import "time"

// FollowEdge はユーザー間のフォロー関係を表す有向エッジ。
// (follower_id, following_id)の順序対ごとにアクティブなエッジは最大1本。
// アンフォローは物理削除ではなくis_active=falseへの更新で表現する。
type FollowEdge struct {
	ID          string
	FollowerID  string
	FollowingID string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
