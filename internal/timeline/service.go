// Package timeline は複数コンテンツ種別を単一のタイムラインに統合する
// アグリゲータを提供する。
package timeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hitoshi/vitafeed/internal/metrics"
	"github.com/hitoshi/vitafeed/internal/model"
)

const (
	// MinLimit はタイムライン1ページの最小件数。
	MinLimit = 1
	// MaxLimit はタイムライン1ページの最大件数。
	// 範囲外のlimitは丸めずにINVALID_ARGUMENTとして拒否する。
	MaxLimit = 100
)

// Store はコンテンツ1種別分のアイテムストアインターフェース。
// 種別の追加はこのインターフェースを満たすアダプタを1つ登録するだけでよく、
// マージロジックには手を入れない。
type Store interface {
	// Kind はこのストアが扱うアイテム種別を返す。
	Kind() model.ItemKind

	// QueryCandidates は述語に一致するアイテムを
	// created_at降順（同時刻はid昇順）で最大limit件返す。
	QueryCandidates(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error)

	// Count は述語に一致するアイテムの総数を返す。
	// QueryCandidatesと同一の述語で評価されなければならない。
	Count(ctx context.Context, pred model.ItemPredicate) (int, error)
}

// Service はタイムライン集計のサービス。
// 状態を持たない読み取り専用の操作のみを提供し、リクエスト間で
// 共有するキャッシュやロックは存在しない。
type Service struct {
	stores  []Store
	metrics metrics.TimelineCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(stores []Store, collector metrics.TimelineCollector) *Service {
	if collector == nil {
		collector = metrics.NopTimelineCollector{}
	}
	return &Service{
		stores:  stores,
		metrics: collector,
	}
}

// Result はGetTimelineの戻り値。
// Totalはページではなく、述語に一致する全種別の総件数。
type Result struct {
	Items []model.TimelineItem
	Total int
	Skip  int
	Limit int
}

// validFilterTypes は有効なfilter_type値のセット。
var validFilterTypes = map[model.FilterType]bool{
	model.FilterAll:       true,
	model.FilterFollowing: true,
	model.FilterMyPosts:   true,
}

// GetTimeline は全コンテンツ種別を横断した1ページ分のタイムラインを返す。
//
// viewerIDが空文字の場合は匿名ビューアとして扱う。匿名ビューアによる
// following / my_posts の要求はエラーではなく空結果を返す。
//
// 各種別のストアへは skip+limit 件を上限とした候補クエリを発行する。
// どの種別も自身の最新 skip+limit 件を超えてマージ後のページに
// 寄与することはないため、この上限でページの正しさが保証される。
// 候補を連結し (created_at降順, id昇順) でソートした後、skipを除いて
// 先頭limit件をページとして返す。
//
// ページ取得と件数取得は同一トランザクションに包まない。並行する書き込みが
// 両クエリの間に入った場合、Totalがページと1件ずれることがあるが、
// これは許容される結果整合性の挙動。
func (s *Service) GetTimeline(
	ctx context.Context,
	viewerID string,
	skip, limit int,
	filterType model.FilterType,
) (*Result, error) {
	if !validFilterTypes[filterType] {
		return nil, model.NewInvalidFilterTypeError(string(filterType))
	}
	if limit < MinLimit || limit > MaxLimit {
		return nil, model.NewInvalidLimitError(limit)
	}
	if skip < 0 {
		return nil, model.NewInvalidSkipError(skip)
	}

	s.metrics.RecordTimelineRequest(string(filterType))

	// 匿名ビューアのパーソナライズフィルタは空結果（エラーではない）
	if viewerID == "" &&
		(filterType == model.FilterFollowing || filterType == model.FilterMyPosts) {
		return &Result{
			Items: []model.TimelineItem{},
			Total: 0,
			Skip:  skip,
			Limit: limit,
		}, nil
	}

	start := time.Now()
	pred := model.ItemPredicate{ViewerID: viewerID, Filter: filterType}
	perKindLimit := skip + limit

	// ストアごとのクエリは相互に独立しており並行発行も可能だが、
	// 逐次実行でも結果は同一なため、エラー伝播が単純な逐次実行とする。
	var candidates []model.TimelineItem
	total := 0
	for _, store := range s.stores {
		kind := string(store.Kind())

		items, err := store.QueryCandidates(ctx, pred, perKindLimit)
		if err != nil {
			s.metrics.RecordUpstreamError(kind)
			return nil, fmt.Errorf("%sの候補取得に失敗しました: %w", kind, err)
		}
		s.metrics.RecordCandidates(kind, len(items))
		candidates = append(candidates, items...)

		count, err := store.Count(ctx, pred)
		if err != nil {
			s.metrics.RecordUpstreamError(kind)
			return nil, fmt.Errorf("%sの件数取得に失敗しました: %w", kind, err)
		}
		total += count
	}

	sortItems(candidates)
	page := paginate(candidates, skip, limit)

	s.metrics.RecordMergeLatency(time.Since(start))

	return &Result{
		Items: page,
		Total: total,
		Skip:  skip,
		Limit: limit,
	}, nil
}

// sortItems はアイテムを(created_at降順, id昇順)でソートする。
// idによるタイブレークにより、同時刻のアイテムでも呼び出しごとに
// 安定した順序が保証される。
func sortItems(items []model.TimelineItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// paginate はソート済み候補からskipを除いて先頭limit件を返す。
// 結果が空でもnilではなく空スライスを返す（JSONで[]になる）。
func paginate(items []model.TimelineItem, skip, limit int) []model.TimelineItem {
	if skip >= len(items) {
		return []model.TimelineItem{}
	}

	end := skip + limit
	if end > len(items) {
		end = len(items)
	}

	page := make([]model.TimelineItem, end-skip)
	copy(page, items[skip:end])
	return page
}
