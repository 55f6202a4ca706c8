// Package model はドメインモデルを定義する。
package model

import "time"

// ItemKind はタイムラインに流れるコンテンツの種別を表す。
// JSONレスポンスではitem_typeフィールドとして出力される。
type ItemKind string

const (
	// KindPost は投稿。
	KindPost ItemKind = "post"
	// KindVitalRecord は体調記録。
	KindVitalRecord ItemKind = "vital_record"
	// KindMealRecord は食事記録。
	KindMealRecord ItemKind = "meal_record"
	// KindBloodPressureRecord は血圧記録。
	KindBloodPressureRecord ItemKind = "blood_pressure_record"
	// KindHeartRateRecord は心拍数記録。
	KindHeartRateRecord ItemKind = "heart_rate_record"
	// KindTemperatureRecord は体温記録。
	KindTemperatureRecord ItemKind = "temperature_record"
	// KindWeightRecord は体重記録。
	KindWeightRecord ItemKind = "weight_record"
	// KindBodyFatRecord は体脂肪率記録。
	KindBodyFatRecord ItemKind = "body_fat_record"
	// KindBloodGlucoseRecord は血糖値記録。
	KindBloodGlucoseRecord ItemKind = "blood_glucose_record"
	// KindSpO2Record は血中酸素飽和度記録。
	KindSpO2Record ItemKind = "spo2_record"
)

// Visibility はアイテムの公開範囲を表す。
type Visibility string

const (
	// VisibilityPublic は全員に公開。
	VisibilityPublic Visibility = "public"
	// VisibilityFollowersOnly はフォロワーのみに公開。
	VisibilityFollowersOnly Visibility = "followers_only"
	// VisibilityPrivate は本人のみに公開。
	VisibilityPrivate Visibility = "private"
)

// validVisibilities は有効な公開範囲のセット。
var validVisibilities = map[Visibility]bool{
	VisibilityPublic:        true,
	VisibilityFollowersOnly: true,
	VisibilityPrivate:       true,
}

// IsValidVisibility は公開範囲の値が有効かどうかを返す。
func IsValidVisibility(v Visibility) bool {
	return validVisibilities[v]
}

// FilterType はタイムラインのフィルタ種別を表す。
type FilterType string

const (
	// FilterAll は閲覧可能な全アイテムを表示するフィルタ。
	FilterAll FilterType = "all"
	// FilterFollowing はフォロー中ユーザーのアイテムのみを表示するフィルタ。
	FilterFollowing FilterType = "following"
	// FilterMyPosts は自分のアイテムのみを表示するフィルタ。
	FilterMyPosts FilterType = "my_posts"
)

// TimelineItem はタイムライン上の1アイテムを表す。
// 全種別に共通のエンベロープと、種別固有のペイロードを持つタグ付きユニオン。
type TimelineItem struct {
	ID         string
	Kind       ItemKind
	OwnerID    string
	Visibility Visibility
	CreatedAt  time.Time
	Payload    ItemPayload
}

// ItemPayload は種別固有のペイロードを表すマーカーインターフェース。
type ItemPayload interface {
	itemPayload()
}

// PostPayload は投稿のペイロード。
// Contentはサニタイズ済みHTML。
type PostPayload struct {
	Content              string   `json:"content"`
	LikeCount            int      `json:"like_count"`
	CommentCount         int      `json:"comment_count"`
	IsLikedByCurrentUser bool     `json:"is_liked_by_current_user"`
	Images               []string `json:"images"`
}

// VitalPayload は体調記録のペイロード。ConditionScoreは1〜5の主観スコア。
type VitalPayload struct {
	ConditionScore int    `json:"condition_score"`
	Note           string `json:"note"`
}

// MealPayload は食事記録のペイロード。
type MealPayload struct {
	MealType string  `json:"meal_type"` // breakfast / lunch / dinner / snack
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
}

// BloodPressurePayload は血圧記録のペイロード。
type BloodPressurePayload struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
	Pulse     int `json:"pulse"`
}

// HeartRatePayload は心拍数記録のペイロード。
type HeartRatePayload struct {
	BPM int `json:"bpm"`
}

// TemperaturePayload は体温記録のペイロード。摂氏。
type TemperaturePayload struct {
	Temperature float64 `json:"temperature"`
}

// WeightPayload は体重記録のペイロード。キログラム。
type WeightPayload struct {
	WeightKg float64 `json:"weight_kg"`
}

// BodyFatPayload は体脂肪率記録のペイロード。
type BodyFatPayload struct {
	BodyFatPercent float64 `json:"body_fat_percent"`
}

// BloodGlucosePayload は血糖値記録のペイロード。mg/dL。
type BloodGlucosePayload struct {
	GlucoseMgDl float64 `json:"glucose_mg_dl"`
	Timing      string  `json:"timing"` // fasting / before_meal / after_meal
}

// SpO2Payload は血中酸素飽和度記録のペイロード。
type SpO2Payload struct {
	SpO2Percent int `json:"spo2_percent"`
}

func (PostPayload) itemPayload()          {}
func (VitalPayload) itemPayload()         {}
func (MealPayload) itemPayload()          {}
func (BloodPressurePayload) itemPayload() {}
func (HeartRatePayload) itemPayload()     {}
func (TemperaturePayload) itemPayload()   {}
func (WeightPayload) itemPayload()        {}
func (BodyFatPayload) itemPayload()       {}
func (BloodGlucosePayload) itemPayload()  {}
func (SpO2Payload) itemPayload()          {}

// ItemPredicate はアイテム検索の述語を表す。
// タイムラインアグリゲータが各ストアに渡し、ストア側でSQL条件に翻訳される。
// ViewerIDが空文字の場合は匿名ビューアを表す。
type ItemPredicate struct {
	ViewerID string
	Filter   FilterType
}

// Anonymous はビューアが匿名かどうかを返す。
func (p ItemPredicate) Anonymous() bool {
	return p.ViewerID == ""
}
