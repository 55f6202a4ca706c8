package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/vitafeed/internal/model"
)

// PostgresPostStore はPostgreSQLを使用した投稿ストア。
// タイムライン向けの読み取り（候補取得・件数取得）と
// 投稿CRUD（PostRepository）の両方を提供する。
type PostgresPostStore struct {
	db *sql.DB
}

// NewPostgresPostStore はPostgresPostStoreを生成する。
func NewPostgresPostStore(db *sql.DB) *PostgresPostStore {
	return &PostgresPostStore{db: db}
}

// Kind はこのストアが扱うアイテム種別を返す。
func (s *PostgresPostStore) Kind() model.ItemKind {
	return model.KindPost
}

// imagesSubquery は投稿に紐付く画像URL配列のサブクエリ。position昇順。
const imagesSubquery = `(SELECT COALESCE(array_agg(i.url ORDER BY i.position), '{}')
		FROM post_images i WHERE i.post_id = p.id)`

// QueryCandidates は述語に一致する投稿をcreated_at降順（同時刻はid昇順）で
// 最大limit件返す。is_liked_by_current_userはビューアごとに解決される。
func (s *PostgresPostStore) QueryCandidates(
	ctx context.Context,
	pred model.ItemPredicate,
	limit int,
) ([]model.TimelineItem, error) {
	where, args := itemPredicateSQL(pred, "p.", 1)

	// 匿名ビューアのいいね状態は常にfalse
	isLikedExpr := "false"
	if !pred.Anonymous() {
		isLikedExpr = fmt.Sprintf(
			"EXISTS(SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $%d)",
			len(args)+1,
		)
		args = append(args, pred.ViewerID)
	}

	query := fmt.Sprintf(
		`SELECT p.id, p.user_id, p.visibility, p.created_at, p.content,
		        p.like_count, p.comment_count, %s AS is_liked, %s AS images
		 FROM posts p
		 WHERE %s
		 ORDER BY p.created_at DESC, p.id ASC
		 LIMIT $%d`,
		isLikedExpr, imagesSubquery, where, len(args)+1,
	)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿の候補取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []model.TimelineItem
	for rows.Next() {
		var it model.TimelineItem
		var p model.PostPayload
		var images pq.StringArray

		if err := rows.Scan(
			&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
			&p.Content, &p.LikeCount, &p.CommentCount, &p.IsLikedByCurrentUser, &images,
		); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}

		p.Images = []string(images)
		it.Kind = model.KindPost
		it.Payload = p
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿候補の走査に失敗しました: %w", err)
	}

	return items, nil
}

// Count は述語に一致する投稿の総数を返す。
func (s *PostgresPostStore) Count(ctx context.Context, pred model.ItemPredicate) (int, error) {
	where, args := itemPredicateSQL(pred, "p.", 1)
	query := fmt.Sprintf("SELECT count(*) FROM posts p WHERE %s", where)

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("投稿件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Create は投稿と画像URL一覧を同一トランザクションで作成する。
func (s *PostgresPostStore) Create(ctx context.Context, post *model.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, content, visibility, like_count, comment_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.UserID, post.Content, post.Visibility,
		post.LikeCount, post.CommentCount, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	for i, url := range post.Images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO post_images (post_id, position, url) VALUES ($1, $2, $3)`,
			post.ID, i, url,
		)
		if err != nil {
			return fmt.Errorf("投稿画像の作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (s *PostgresPostStore) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	var images pq.StringArray

	err := s.db.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, p.content, p.visibility, p.like_count, p.comment_count,
		        `+imagesSubquery+` AS images, p.created_at, p.updated_at
		 FROM posts p WHERE p.id = $1`,
		id,
	).Scan(
		&post.ID, &post.UserID, &post.Content, &post.Visibility,
		&post.LikeCount, &post.CommentCount, &images, &post.CreatedAt, &post.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}

	post.Images = []string(images)
	return post, nil
}

// Delete は指定IDの投稿を削除する。
func (s *PostgresPostStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	return nil
}

// Like はいいねを冪等に登録し、新規登録時のみlike_countを加算する。
func (s *PostgresPostStore) Like(ctx context.Context, postID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO post_likes (post_id, user_id, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (post_id, user_id) DO NOTHING`,
		postID, userID,
	)
	if err != nil {
		return fmt.Errorf("いいねの登録に失敗しました: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("いいね登録結果の取得に失敗しました: %w", err)
	}

	if inserted > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET like_count = like_count + 1, updated_at = now() WHERE id = $1`,
			postID,
		)
		if err != nil {
			return fmt.Errorf("いいね数の更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Unlike はいいねを冪等に解除し、解除時のみlike_countを減算する。
func (s *PostgresPostStore) Unlike(ctx context.Context, postID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
		postID, userID,
	)
	if err != nil {
		return fmt.Errorf("いいねの解除に失敗しました: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("いいね解除結果の取得に失敗しました: %w", err)
	}

	if deleted > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET like_count = GREATEST(like_count - 1, 0), updated_at = now() WHERE id = $1`,
			postID,
		)
		if err != nil {
			return fmt.Errorf("いいね数の更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// IsLikedBy は指定ユーザーが投稿にいいね済みかを返す。
func (s *PostgresPostStore) IsLikedBy(ctx context.Context, postID, userID string) (bool, error) {
	var liked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2)`,
		postID, userID,
	).Scan(&liked)
	if err != nil {
		return false, fmt.Errorf("いいね状態の取得に失敗しました: %w", err)
	}
	return liked, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostStore)(nil)
