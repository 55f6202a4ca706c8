package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, timeline, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidArgument   = "INVALID_ARGUMENT"
	ErrCodeInvalidVisibility = "INVALID_VISIBILITY"
	ErrCodePostNotFound      = "POST_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
)

// NewInvalidFilterTypeError は無効なfilter_typeエラーを生成する。
func NewInvalidFilterTypeError(filterType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  fmt.Sprintf("無効なfilter_typeです: %s", filterType),
		Category: "validation",
		Action:   "filter_typeには all、following、my_posts のいずれかを指定してください。",
	}
}

// NewInvalidLimitError は範囲外のlimitエラーを生成する。
// limitは丸めずに拒否し、呼び出し側にリクエストの修正を求める。
func NewInvalidLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  fmt.Sprintf("無効なlimitです: %d", limit),
		Category: "validation",
		Action:   "limitには1〜100の整数を指定してください。",
	}
}

// NewInvalidSkipError は負のskipエラーを生成する。
func NewInvalidSkipError(skip int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  fmt.Sprintf("無効なskipです: %d", skip),
		Category: "validation",
		Action:   "skipには0以上の整数を指定してください。",
	}
}

// NewInvalidVisibilityError は無効な公開範囲エラーを生成する。
func NewInvalidVisibilityError(visibility string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidVisibility,
		Message:  fmt.Sprintf("無効な公開範囲です: %s", visibility),
		Category: "validation",
		Action:   "visibilityには public、followers_only、private のいずれかを指定してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
// 閲覧権限のない投稿も存在を秘匿するため同じエラーを返す。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "timeline",
		Action:   "投稿IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "timeline",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分が所有するリソースに対してのみ実行できます。",
	}
}

// NewInvalidRequestError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
