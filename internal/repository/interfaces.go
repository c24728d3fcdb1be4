// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/monknet/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfileImage はプロフィール画像URLを更新し、更新後のユーザーを返す。
	// ユーザーが存在しない場合はnilを返す。
	UpdateProfileImage(ctx context.Context, userID, imageURL string) (*model.User, error)

	// ListAll は全ユーザーのサマリー一覧を返す。ページネーションなし、ストアのデフォルト順。
	// フォロワー/フォロイーはID列として集約して返す。
	ListAll(ctx context.Context) ([]model.UserListEntry, error)

	// ListFollowers は指定ユーザーのフォロワーを表示用サマリーで返す。
	ListFollowers(ctx context.Context, userID string) ([]model.UserSummary, error)

	// ListFollowing は指定ユーザーのフォロイーを表示用サマリーで返す。
	ListFollowing(ctx context.Context, userID string) ([]model.UserSummary, error)

	// FollowCounts はフォロワー数とフォロイー数を集合サイズから算出して返す。
	FollowCounts(ctx context.Context, userID string) (followers int, following int, err error)

	// ListLikedPostIDs はユーザーのいいね済み投稿ID一覧を返す。
	ListLikedPostIDs(ctx context.Context, userID string) ([]string, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// CreateWithCounter は投稿の作成と投稿者のpost_countインクリメントを
	// 同一トランザクションで実行する。
	CreateWithCounter(ctx context.Context, post *model.Post) error

	// ListFeed は全投稿を作成日時降順・オフセットページネーションで返す。
	// 投稿者の表示情報をJOINして取得する。
	ListFeed(ctx context.Context, offset, limit int) ([]model.PostWithAuthor, error)

	// ListByAuthor は指定ユーザーの投稿を作成日時降順で返す。
	ListByAuthor(ctx context.Context, authorID string) ([]model.PostWithAuthor, error)

	// ListTitlesByAuthor は指定ユーザーの投稿タイトル一覧を返す。
	ListTitlesByAuthor(ctx context.Context, authorID string) ([]model.PostTitle, error)
}

// EngagementRepository はフォローエッジといいね状態の永続化インターフェース。
// 複数ドキュメントにまたがる更新を1トランザクションずつに閉じ込め、
// インターフェース境界では常にアトミックな1操作として見せる。
type EngagementRepository interface {
	// CreateEdge はフォローエッジを冪等に作成し、フォロー通知をキューに追加する。
	// エッジは集合（既存時は重複挿入しない）、通知はキュー（重複を許容）として扱う。
	CreateEdge(ctx context.Context, followerID, followeeID string) error

	// DeleteEdge はフォローエッジを削除する。存在しないエッジの削除は何もせず成功する。
	DeleteEdge(ctx context.Context, followerID, followeeID string) error

	// IsLiked は指定ユーザーのいいね済み集合に投稿が含まれるかを返す。
	IsLiked(ctx context.Context, userID, postID string) (bool, error)

	// ApplyLike はいいね状態の遷移を1トランザクションで適用する。
	// liked=true: userIDのいいね済み集合に追加し、両カウンターを+1する。
	// liked=false: 集合から削除し、両カウンターを-1する。
	// ユーザー側カウンターとPost側カウンターは必ず同方向・同幅で動く。
	ApplyLike(ctx context.Context, userID, postID string, liked bool) error

	// DeletePostWithCounter は投稿の削除と投稿者のpost_countデクリメントを
	// 同一トランザクションで実行する。カウンターに下限は設けない。
	DeletePostWithCounter(ctx context.Context, postID, authorID string) error
}

// NotificationRepository はフォロー通知キューの永続化インターフェース。
type NotificationRepository interface {
	// DrainByUserID はキューの全エントリーをフォロワーサマリーに解決して返し、
	// 同一トランザクションでキューを無条件にクリアする。
	// 介在するフォローなしの2回目の呼び出しは空列を返す。
	DrainByUserID(ctx context.Context, userID string) ([]model.UserSummary, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
