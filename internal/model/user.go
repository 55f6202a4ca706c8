package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session はベアラートークンとユーザーの紐付けを表す。
// トークンの発行・認証フローは外部コラボレータの責務であり、
// 本リポジトリはトークンからビューアIDへの解決のみを行う。
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
