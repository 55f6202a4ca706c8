package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/vitafeed/internal/middleware"
	"github.com/hitoshi/vitafeed/internal/model"
	"github.com/hitoshi/vitafeed/internal/timeline"
)

const (
	// defaultTimelineSkip はskipパラメータ省略時のデフォルト値。
	defaultTimelineSkip = 0
	// defaultTimelineLimit はlimitパラメータ省略時のデフォルト値。
	defaultTimelineLimit = 20
)

// TimelineService はタイムライン取得サービスのインターフェース。
type TimelineService interface {
	GetTimeline(ctx context.Context, viewerID string, skip, limit int, filterType model.FilterType) (*timeline.Result, error)
}

// TimelineHandler はタイムラインAPIのハンドラ。
type TimelineHandler struct {
	service TimelineService
}

// NewTimelineHandler はTimelineHandlerの新しいインスタンスを生成する。
func NewTimelineHandler(service TimelineService) *TimelineHandler {
	return &TimelineHandler{service: service}
}

// timelineItemResponse はタイムラインアイテム1件のJSON表現。
// 共通エンベロープに種別固有のペイロードフィールドをフラットに展開する。
type timelineItemResponse map[string]any

// timelineResponse はGET /api/timelineのレスポンスボディ。
type timelineResponse struct {
	Items []timelineItemResponse `json:"items"`
	Total int                    `json:"total"`
	Skip  int                    `json:"skip"`
	Limit int                    `json:"limit"`
}

// GetTimeline はGET /api/timelineを処理する。
// クエリパラメータ: skip（デフォルト0）、limit（デフォルト20、1〜100）、
// filter_type（デフォルトall。all / following / my_posts）。
func (h *TimelineHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.ViewerFromContext(r.Context())

	skip, ok := parseIntQuery(w, r, "skip", defaultTimelineSkip)
	if !ok {
		return
	}
	limit, ok := parseIntQuery(w, r, "limit", defaultTimelineLimit)
	if !ok {
		return
	}

	filterType := model.FilterType(r.URL.Query().Get("filter_type"))
	if filterType == "" {
		filterType = model.FilterAll
	}

	result, err := h.service.GetTimeline(r.Context(), viewerID, skip, limit, filterType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items := make([]timelineItemResponse, len(result.Items))
	for i, item := range result.Items {
		entry, err := flattenItem(item)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		items[i] = entry
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(timelineResponse{
		Items: items,
		Total: result.Total,
		Skip:  result.Skip,
		Limit: result.Limit,
	})
}

// flattenItem は種別固有ペイロードのフィールドを共通エンベロープと
// 同じ階層に展開したJSONオブジェクトを構築する。
// item_typeフィールドが種別の判別子になる。
func flattenItem(item model.TimelineItem) (timelineItemResponse, error) {
	entry := timelineItemResponse{}

	if item.Payload != nil {
		raw, err := json.Marshal(item.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, err
		}
	}

	entry["id"] = item.ID
	entry["item_type"] = string(item.Kind)
	entry["user_id"] = item.OwnerID
	entry["visibility"] = string(item.Visibility)
	entry["created_at"] = item.CreatedAt.UTC().Format(time.RFC3339Nano)

	return entry, nil
}

// parseIntQuery はクエリパラメータを整数として解釈する。
// パラメータ省略時はデフォルト値を返し、整数として解釈できない場合は
// 400レスポンスを書き込んでfalseを返す。
func parseIntQuery(w http.ResponseWriter, r *http.Request, name string, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidArgument,
			Message:  name + "は整数で指定してください: " + raw,
			Category: "validation",
			Action:   name + "には整数を指定してください。",
		})
		return 0, false
	}

	return value, true
}
