package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresEngagementRepo はPostgreSQLを使用したエンゲージメントリポジトリ。
// フォローエッジ・いいね集合・非正規化カウンターにまたがる更新を
// 1操作=1トランザクションで実行する。
type PostgresEngagementRepo struct {
	db *sql.DB
}

// NewPostgresEngagementRepo はPostgresEngagementRepoを生成する。
func NewPostgresEngagementRepo(db *sql.DB) *PostgresEngagementRepo {
	return &PostgresEngagementRepo{db: db}
}

// CreateEdge はフォローエッジを冪等に作成し、フォロー通知をキューに追加する。
// エッジはON CONFLICT DO NOTHINGで集合セマンティクスを保証する。
// 通知キューはエッジの有無に関わらず常に追記する（重複を許容するキュー）。
func (r *PostgresEngagementRepo) CreateEdge(ctx context.Context, followerID, followeeID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id)
		 VALUES ($1, $2)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert follow edge: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO follow_notifications (user_id, follower_id) VALUES ($1, $2)`,
		followeeID, followerID,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue follow notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteEdge はフォローエッジを削除する。存在しないエッジの削除は何もせず成功する。
func (r *PostgresEngagementRepo) DeleteEdge(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete follow edge: %w", err)
	}
	return nil
}

// IsLiked は指定ユーザーのいいね済み集合に投稿が含まれるかを返す。
func (r *PostgresEngagementRepo) IsLiked(ctx context.Context, userID, postID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM liked_posts WHERE user_id = $1 AND post_id = $2)`,
		userID, postID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check like state: %w", err)
	}
	return exists, nil
}

// ApplyLike はいいね状態の遷移を1トランザクションで適用する。
// 集合の増減・ユーザー側カウンター・Post側カウンターが必ず同方向・同幅で動く。
func (r *PostgresEngagementRepo) ApplyLike(ctx context.Context, userID, postID string, liked bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	delta := 1
	if liked {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO liked_posts (user_id, post_id) VALUES ($1, $2)`,
			userID, postID,
		)
	} else {
		delta = -1
		_, err = tx.ExecContext(ctx,
			`DELETE FROM liked_posts WHERE user_id = $1 AND post_id = $2`,
			userID, postID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update liked set: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET likes = likes + $2, updated_at = now() WHERE id = $1`,
		userID, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to update user like counter: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET likes = likes + $2, updated_at = now() WHERE id = $1`,
		postID, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to update post like counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeletePostWithCounter は投稿の削除と投稿者のpost_countデクリメントを
// 同一トランザクションで実行する。
// デクリメントは無条件で、カウンターに下限は設けない。
// liked_postsの該当行はON DELETE CASCADEで削除される。
func (r *PostgresEngagementRepo) DeletePostWithCounter(ctx context.Context, postID, authorID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET post_count = post_count - 1, updated_at = now() WHERE id = $1`,
		authorID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ EngagementRepository = (*PostgresEngagementRepo)(nil)
