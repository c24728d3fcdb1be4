// Package model はドメインモデルを定義する。
package model

import "time"

// Post は投稿を表す。
// Likesは表示用の非正規化カウンターで、真のソースはliked_posts集合。
// CommentsとSharesは将来の拡張用カウンター（現状は常に0）。
type Post struct {
	ID        string
	Title     string
	Content   string // サニタイズ済みHTML
	AuthorID  string
	Image     string
	Likes     int
	Comments  int
	Shares    int
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostWithAuthor は投稿と投稿者サマリーを結合したモデル。
// フィード一覧でauthorをJOINして取得される。
type PostWithAuthor struct {
	Post
	AuthorUsername string
	AuthorEmail    string
}

// PostTitle はプロフィール表示用の投稿タイトルサマリー。
type PostTitle struct {
	ID    string
	Title string
}

// FollowNotification はフォロー通知キューのエントリーを表す。
// キューでありセットではないため、同一フォロワーの重複エントリーを許容する。
type FollowNotification struct {
	ID         int64
	UserID     string // 通知の宛先（フォローされた側）
	FollowerID string
	CreatedAt  time.Time
}
