// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PostCount・Likes・Viewsは表示用の非正規化カウンター。
// 真のソースはposts・liked_postsの各集合であり、カウンターはそのキャッシュ投影。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // OAuth経由で作成されたアカウントは空
	Bio          string
	ProfileImage string
	PostCount    int
	Likes        int
	Views        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary はユーザーの表示用サマリー（フォロワー一覧・通知等で使用）。
type UserSummary struct {
	ID       string
	Username string
}

// UserListEntry は全ユーザー一覧のエントリー。
// フォロワー/フォロイーはID列のまま返す。
type UserListEntry struct {
	ID           string
	Username     string
	Email        string
	ProfileImage string
	Followers    []string
	Following    []string
}

// UserStats はプロフィール表示用の統計情報。
// FollowersとFollowingは集合サイズから算出し、Postsは非正規化カウンターを返す。
type UserStats struct {
	Followers int
	Following int
	Posts     int
	Likes     int
	Views     int
}

// Principal は認証済みリクエストに紐付くユーザー識別情報を表す。
type Principal struct {
	UserID   string
	Username string
}
