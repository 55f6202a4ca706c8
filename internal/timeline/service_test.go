package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/vitafeed/internal/model"
)

// mockStore はStoreインターフェースのモック実装。
type mockStore struct {
	kind             model.ItemKind
	queryCandidates  func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error)
	count            func(ctx context.Context, pred model.ItemPredicate) (int, error)
}

func (m *mockStore) Kind() model.ItemKind { return m.kind }

func (m *mockStore) QueryCandidates(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
	return m.queryCandidates(ctx, pred, limit)
}

func (m *mockStore) Count(ctx context.Context, pred model.ItemPredicate) (int, error) {
	return m.count(ctx, pred)
}

// fixedStore は固定のアイテム一覧を返すストアを生成する。
// QueryCandidatesはcreated_at降順・id昇順でソート済みの先頭limit件を返す。
func fixedStore(kind model.ItemKind, items []model.TimelineItem) *mockStore {
	sorted := make([]model.TimelineItem, len(items))
	copy(sorted, items)
	sortItems(sorted)

	return &mockStore{
		kind: kind,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			if limit > len(sorted) {
				limit = len(sorted)
			}
			page := make([]model.TimelineItem, limit)
			copy(page, sorted[:limit])
			return page, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return len(items), nil
		},
	}
}

func item(id string, kind model.ItemKind, createdAt time.Time) model.TimelineItem {
	return model.TimelineItem{
		ID:         id,
		Kind:       kind,
		OwnerID:    "owner-1",
		Visibility: model.VisibilityPublic,
		CreatedAt:  createdAt,
	}
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGetTimeline_MergesAcrossKinds(t *testing.T) {
	posts := fixedStore(model.KindPost, []model.TimelineItem{
		item("p1", model.KindPost, baseTime.Add(3*time.Minute)),
		item("p2", model.KindPost, baseTime.Add(1*time.Minute)),
	})
	weights := fixedStore(model.KindWeightRecord, []model.TimelineItem{
		item("w1", model.KindWeightRecord, baseTime.Add(2*time.Minute)),
	})

	svc := NewService([]Store{posts, weights}, nil)

	result, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterAll)
	if err != nil {
		t.Fatalf("GetTimeline returned error: %v", err)
	}

	wantOrder := []string{"p1", "w1", "p2"}
	if len(result.Items) != len(wantOrder) {
		t.Fatalf("len(Items) = %d, want %d", len(result.Items), len(wantOrder))
	}
	for i, id := range wantOrder {
		if result.Items[i].ID != id {
			t.Errorf("Items[%d].ID = %q, want %q", i, result.Items[i].ID, id)
		}
	}
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
}

func TestGetTimeline_TieBreakByIDAscending(t *testing.T) {
	// 同一created_atのアイテムはid昇順で安定的に並ぶ
	same := baseTime
	store := fixedStore(model.KindPost, []model.TimelineItem{
		item("c", model.KindPost, same),
		item("a", model.KindPost, same),
		item("b", model.KindPost, same),
	})

	svc := NewService([]Store{store}, nil)

	for i := 0; i < 3; i++ {
		result, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterAll)
		if err != nil {
			t.Fatalf("GetTimeline returned error: %v", err)
		}

		wantOrder := []string{"a", "b", "c"}
		for j, id := range wantOrder {
			if result.Items[j].ID != id {
				t.Errorf("呼び出し%d: Items[%d].ID = %q, want %q", i, j, result.Items[j].ID, id)
			}
		}
	}
}

func TestGetTimeline_PaginationIsCompleteAndDisjoint(t *testing.T) {
	// skipを進めながら取得したページの和集合が全アイテムと一致し、
	// 重複も欠落もないことを検証する
	var items []model.TimelineItem
	for i := 0; i < 23; i++ {
		items = append(items, item(fmt.Sprintf("item-%02d", i), model.KindPost, baseTime.Add(time.Duration(i)*time.Second)))
	}
	store := fixedStore(model.KindPost, items)

	svc := NewService([]Store{store}, nil)

	const limit = 5
	seen := make(map[string]int)
	fetched := 0
	for skip := 0; skip < len(items); skip += limit {
		result, err := svc.GetTimeline(context.Background(), "viewer-1", skip, limit, model.FilterAll)
		if err != nil {
			t.Fatalf("GetTimeline(skip=%d) returned error: %v", skip, err)
		}
		for _, it := range result.Items {
			seen[it.ID]++
			fetched++
		}
	}

	if fetched != len(items) {
		t.Errorf("取得件数 = %d, want %d", fetched, len(items))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("アイテム %q が %d 回出現（重複）", id, n)
		}
	}
}

func TestGetTimeline_PerKindLimitIsSkipPlusLimit(t *testing.T) {
	var gotLimit int
	store := &mockStore{
		kind: model.KindPost,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			gotLimit = limit
			return nil, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 0, nil
		},
	}

	svc := NewService([]Store{store}, nil)

	_, err := svc.GetTimeline(context.Background(), "viewer-1", 40, 20, model.FilterAll)
	if err != nil {
		t.Fatalf("GetTimeline returned error: %v", err)
	}

	if gotLimit != 60 {
		t.Errorf("ストアへのlimit = %d, want skip+limit = 60", gotLimit)
	}
}

func TestGetTimeline_PredicateCarriesViewerAndFilter(t *testing.T) {
	var gotPred model.ItemPredicate
	store := &mockStore{
		kind: model.KindPost,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			gotPred = pred
			return nil, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 0, nil
		},
	}

	svc := NewService([]Store{store}, nil)

	_, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterFollowing)
	if err != nil {
		t.Fatalf("GetTimeline returned error: %v", err)
	}

	if gotPred.ViewerID != "viewer-1" {
		t.Errorf("pred.ViewerID = %q, want %q", gotPred.ViewerID, "viewer-1")
	}
	if gotPred.Filter != model.FilterFollowing {
		t.Errorf("pred.Filter = %q, want %q", gotPred.Filter, model.FilterFollowing)
	}
}

func TestGetTimeline_TotalIsSumOfAllKindCounts(t *testing.T) {
	// Totalはページに載った件数ではなく、全種別の合計件数
	posts := &mockStore{
		kind: model.KindPost,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			return []model.TimelineItem{item("p1", model.KindPost, baseTime)}, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 150, nil
		},
	}
	weights := &mockStore{
		kind: model.KindWeightRecord,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			return nil, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 8, nil
		},
	}

	svc := NewService([]Store{posts, weights}, nil)

	result, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterAll)
	if err != nil {
		t.Fatalf("GetTimeline returned error: %v", err)
	}

	if result.Total != 158 {
		t.Errorf("Total = %d, want 158", result.Total)
	}
}

func TestGetTimeline_AnonymousPersonalizedFilter_ReturnsEmptyResult(t *testing.T) {
	// 匿名ビューアのfollowing / my_postsはエラーではなく空結果
	storeCalled := false
	store := &mockStore{
		kind: model.KindPost,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			storeCalled = true
			return nil, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			storeCalled = true
			return 0, nil
		},
	}

	svc := NewService([]Store{store}, nil)

	for _, filter := range []model.FilterType{model.FilterFollowing, model.FilterMyPosts} {
		result, err := svc.GetTimeline(context.Background(), "", 0, 20, filter)
		if err != nil {
			t.Fatalf("GetTimeline(%s) returned error: %v", filter, err)
		}

		if result.Items == nil {
			t.Errorf("%s: Itemsはnilではなく空スライスであるべき", filter)
		}
		if len(result.Items) != 0 {
			t.Errorf("%s: len(Items) = %d, want 0", filter, len(result.Items))
		}
		if result.Total != 0 {
			t.Errorf("%s: Total = %d, want 0", filter, result.Total)
		}
	}

	if storeCalled {
		t.Error("匿名のパーソナライズフィルタではストアを呼び出すべきではない")
	}
}

func TestGetTimeline_AnonymousAllFilter_QueriesStores(t *testing.T) {
	// 匿名のallフィルタは公開アイテムのタイムラインを返す
	var gotPred model.ItemPredicate
	store := &mockStore{
		kind: model.KindPost,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			gotPred = pred
			return []model.TimelineItem{item("p1", model.KindPost, baseTime)}, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 1, nil
		},
	}

	svc := NewService([]Store{store}, nil)

	result, err := svc.GetTimeline(context.Background(), "", 0, 20, model.FilterAll)
	if err != nil {
		t.Fatalf("GetTimeline returned error: %v", err)
	}

	if !gotPred.Anonymous() {
		t.Error("匿名ビューアの述語はAnonymous()=trueであるべき")
	}
	if len(result.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1", len(result.Items))
	}
}

func TestGetTimeline_LimitBoundaries(t *testing.T) {
	store := fixedStore(model.KindPost, nil)
	svc := NewService([]Store{store}, nil)

	tests := []struct {
		limit   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{100, false},
		{101, true},
		{-1, true},
	}

	for _, tt := range tests {
		_, err := svc.GetTimeline(context.Background(), "viewer-1", 0, tt.limit, model.FilterAll)
		if tt.wantErr && err == nil {
			t.Errorf("limit=%d: エラーが返るべき", tt.limit)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("limit=%d: 予期しないエラー: %v", tt.limit, err)
		}

		if tt.wantErr {
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Errorf("limit=%d: APIErrorが返るべき, got %T", tt.limit, err)
				continue
			}
			if apiErr.Code != model.ErrCodeInvalidArgument {
				t.Errorf("limit=%d: Code = %q, want %q", tt.limit, apiErr.Code, model.ErrCodeInvalidArgument)
			}
		}
	}
}

func TestGetTimeline_NegativeSkip_ReturnsInvalidArgument(t *testing.T) {
	store := fixedStore(model.KindPost, nil)
	svc := NewService([]Store{store}, nil)

	_, err := svc.GetTimeline(context.Background(), "viewer-1", -1, 20, model.FilterAll)
	if err == nil {
		t.Fatal("負のskipでエラーが返るべき")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返るべき, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidArgument {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidArgument)
	}
}

func TestGetTimeline_InvalidFilterType_ReturnsInvalidArgument(t *testing.T) {
	store := fixedStore(model.KindPost, nil)
	svc := NewService([]Store{store}, nil)

	_, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterType("popular"))
	if err == nil {
		t.Fatal("未知のfilter_typeでエラーが返るべき")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返るべき, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidArgument {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidArgument)
	}
}

func TestGetTimeline_SkipBeyondTotal_ReturnsEmptyPage(t *testing.T) {
	store := fixedStore(model.KindPost, []model.TimelineItem{
		item("p1", model.KindPost, baseTime),
	})
	svc := NewService([]Store{store}, nil)

	result, err := svc.GetTimeline(context.Background(), "viewer-1", 100, 20, model.FilterAll)
	if err != nil {
		t.Fatalf("GetTimeline returned error: %v", err)
	}

	if result.Items == nil {
		t.Error("Itemsはnilではなく空スライスであるべき")
	}
	if len(result.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(result.Items))
	}
	// Totalは全件数のまま
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
}

func TestGetTimeline_StoreQueryError_IsWrappedWithKind(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &mockStore{
		kind: model.KindBloodPressureRecord,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			return nil, storeErr
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 0, nil
		},
	}

	svc := NewService([]Store{store}, nil)

	_, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterAll)
	if err == nil {
		t.Fatal("ストアエラーが伝播すべき")
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("元のエラーをラップすべき: %v", err)
	}
	if !strings.Contains(err.Error(), string(model.KindBloodPressureRecord)) {
		t.Errorf("エラーメッセージに種別が含まれるべき: %v", err)
	}
}

func TestGetTimeline_CountError_IsPropagated(t *testing.T) {
	countErr := errors.New("count failed")
	store := &mockStore{
		kind: model.KindPost,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			return nil, nil
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 0, countErr
		},
	}

	svc := NewService([]Store{store}, nil)

	_, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterAll)
	if !errors.Is(err, countErr) {
		t.Errorf("Countのエラーが伝播すべき: %v", err)
	}
}

// mockCollector はメトリクス呼び出しを記録するTimelineCollector。
type mockCollector struct {
	requests       []string
	latencies      int
	candidates     map[string]int
	upstreamErrors []string
}

func (m *mockCollector) RecordTimelineRequest(filterType string) {
	m.requests = append(m.requests, filterType)
}
func (m *mockCollector) RecordMergeLatency(time.Duration) { m.latencies++ }
func (m *mockCollector) RecordCandidates(kind string, count int) {
	if m.candidates == nil {
		m.candidates = make(map[string]int)
	}
	m.candidates[kind] += count
}
func (m *mockCollector) RecordUpstreamError(kind string) {
	m.upstreamErrors = append(m.upstreamErrors, kind)
}

func TestGetTimeline_RecordsMetrics(t *testing.T) {
	store := fixedStore(model.KindPost, []model.TimelineItem{
		item("p1", model.KindPost, baseTime),
	})
	collector := &mockCollector{}
	svc := NewService([]Store{store}, collector)

	_, err := svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterAll)
	if err != nil {
		t.Fatalf("GetTimeline returned error: %v", err)
	}

	if len(collector.requests) != 1 || collector.requests[0] != "all" {
		t.Errorf("requests = %v, want [all]", collector.requests)
	}
	if collector.latencies != 1 {
		t.Errorf("latencies = %d, want 1", collector.latencies)
	}
	if collector.candidates["post"] != 1 {
		t.Errorf("candidates[post] = %d, want 1", collector.candidates["post"])
	}
}

func TestGetTimeline_RecordsUpstreamErrorMetric(t *testing.T) {
	store := &mockStore{
		kind: model.KindSpO2Record,
		queryCandidates: func(ctx context.Context, pred model.ItemPredicate, limit int) ([]model.TimelineItem, error) {
			return nil, errors.New("boom")
		},
		count: func(ctx context.Context, pred model.ItemPredicate) (int, error) {
			return 0, nil
		},
	}
	collector := &mockCollector{}
	svc := NewService([]Store{store}, collector)

	_, _ = svc.GetTimeline(context.Background(), "viewer-1", 0, 20, model.FilterAll)

	if len(collector.upstreamErrors) != 1 || collector.upstreamErrors[0] != "spo2_record" {
		t.Errorf("upstreamErrors = %v, want [spo2_record]", collector.upstreamErrors)
	}
}

func TestGetTimeline_ValidationError_DoesNotRecordRequest(t *testing.T) {
	// バリデーション拒否されたリクエストはリクエストメトリクスに含めない
	store := fixedStore(model.KindPost, nil)
	collector := &mockCollector{}
	svc := NewService([]Store{store}, collector)

	_, _ = svc.GetTimeline(context.Background(), "viewer-1", 0, 0, model.FilterAll)

	if len(collector.requests) != 0 {
		t.Errorf("requests = %v, want empty", collector.requests)
	}
}
