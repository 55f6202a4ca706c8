package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/vitafeed/internal/model"
)

// recordKindSpec は健康記録1種別分のテーブル対応を定義する。
// 新しい記録種別の追加は、record_kinds.goにspecを1つ登録するだけでよい。
type recordKindSpec struct {
	kind        model.ItemKind
	table       string
	payloadCols string // SELECT句に埋め込むペイロードカラム（カンマ区切り）
	scanRow     func(rows *sql.Rows) (model.TimelineItem, error)
}

// PostgresRecordStore はPostgreSQLを使用した健康記録ストア。
// recordKindSpecでパラメータ化され、1種別につき1インスタンスが対応する。
type PostgresRecordStore struct {
	db   *sql.DB
	spec recordKindSpec
}

// newPostgresRecordStore は指定specのPostgresRecordStoreを生成する。
func newPostgresRecordStore(db *sql.DB, spec recordKindSpec) *PostgresRecordStore {
	return &PostgresRecordStore{db: db, spec: spec}
}

// Kind はこのストアが扱うアイテム種別を返す。
func (s *PostgresRecordStore) Kind() model.ItemKind {
	return s.spec.kind
}

// QueryCandidates は述語に一致する記録をcreated_at降順（同時刻はid昇順）で
// 最大limit件返す。
func (s *PostgresRecordStore) QueryCandidates(
	ctx context.Context,
	pred model.ItemPredicate,
	limit int,
) ([]model.TimelineItem, error) {
	where, args := itemPredicateSQL(pred, "", 1)
	query := fmt.Sprintf(
		`SELECT id, user_id, visibility, created_at, %s
		 FROM %s
		 WHERE %s
		 ORDER BY created_at DESC, id ASC
		 LIMIT $%d`,
		s.spec.payloadCols, s.spec.table, where, len(args)+1,
	)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%sの候補取得に失敗しました: %w", s.spec.kind, err)
	}
	defer rows.Close()

	var items []model.TimelineItem
	for rows.Next() {
		item, err := s.spec.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%sの行読み取りに失敗しました: %w", s.spec.kind, err)
		}
		item.Kind = s.spec.kind
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%sの候補走査に失敗しました: %w", s.spec.kind, err)
	}

	return items, nil
}

// Count は述語に一致する記録の総数を返す。
// QueryCandidatesと同一の述語翻訳を使用する。
func (s *PostgresRecordStore) Count(ctx context.Context, pred model.ItemPredicate) (int, error) {
	where, args := itemPredicateSQL(pred, "", 1)
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", s.spec.table, where)

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%sの件数取得に失敗しました: %w", s.spec.kind, err)
	}
	return count, nil
}
