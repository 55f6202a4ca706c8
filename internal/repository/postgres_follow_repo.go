package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/vitafeed/internal/model"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローエッジリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Activate はフォローエッジを冪等にアクティブ化する。
// (follower_id, following_id)のUNIQUE制約を利用したUPSERTで、
// 順序対ごとにエッジが最大1本である不変条件を保証する。
func (r *PostgresFollowRepo) Activate(ctx context.Context, edge *model.FollowEdge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (id, follower_id, following_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, true, $4, $5)
		 ON CONFLICT (follower_id, following_id)
		 DO UPDATE SET is_active = true, updated_at = $5`,
		edge.ID, edge.FollowerID, edge.FollowingID, edge.CreatedAt, edge.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フォローエッジの登録に失敗しました: %w", err)
	}
	return nil
}

// Deactivate はフォローエッジを非アクティブ化する。
// エッジが存在しない場合も成功として扱う（冪等）。
func (r *PostgresFollowRepo) Deactivate(ctx context.Context, followerID, followingID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE follows SET is_active = false, updated_at = now()
		 WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("フォローエッジの解除に失敗しました: %w", err)
	}
	return nil
}

// IsFollowing はアクティブなフォローエッジ follower → following が存在するかを返す。
func (r *PostgresFollowRepo) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var following bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(
		    SELECT 1 FROM follows
		    WHERE follower_id = $1 AND following_id = $2 AND is_active
		 )`,
		followerID, followingID,
	).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("フォロー状態の取得に失敗しました: %w", err)
	}
	return following, nil
}

// ListActiveByFollower はユーザーのアクティブなフォローエッジ一覧をcreated_at降順で返す。
func (r *PostgresFollowRepo) ListActiveByFollower(ctx context.Context, followerID string) ([]*model.FollowEdge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, follower_id, following_id, is_active, created_at, updated_at
		 FROM follows
		 WHERE follower_id = $1 AND is_active
		 ORDER BY created_at DESC`,
		followerID,
	)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var edges []*model.FollowEdge
	for rows.Next() {
		edge := &model.FollowEdge{}
		if err := rows.Scan(
			&edge.ID, &edge.FollowerID, &edge.FollowingID,
			&edge.IsActive, &edge.CreatedAt, &edge.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("フォローエッジ行の読み取りに失敗しました: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー一覧の走査に失敗しました: %w", err)
	}

	return edges, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
