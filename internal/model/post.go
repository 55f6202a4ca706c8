package model

import "time"

// Post はユーザーの投稿を表す。
// Contentは保存時点でサニタイズ済みのHTML。
// LikeCount/CommentCountは非正規化カウンタとしてpostsテーブルに保持する。
type Post struct {
	ID           string
	UserID       string
	Content      string
	Visibility   Visibility
	LikeCount    int
	CommentCount int
	Images       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
