package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/monknet/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, bio, profile_image, post_count, likes, views, created_at, updated_at`

// scanUser は1行をmodel.Userに読み込む。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Bio, &user.ProfileImage,
		&user.PostCount, &user.Likes, &user.Views,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, bio, profile_image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.Bio, user.ProfileImage, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateProfileImage はプロフィール画像URLを更新し、更新後のユーザーを返す。
// ユーザーが存在しない場合はnilを返す。
func (r *PostgresUserRepo) UpdateProfileImage(ctx context.Context, userID, imageURL string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET profile_image = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns, userID, imageURL)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile image: %w", err)
	}
	return user, nil
}

// ListAll は全ユーザーのサマリー一覧を返す。ページネーションなし、ストアのデフォルト順。
// フォロワー/フォロイーのID列はfollowsテーブルから集約する。
func (r *PostgresUserRepo) ListAll(ctx context.Context) ([]model.UserListEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.email, u.profile_image,
		        COALESCE(ARRAY(SELECT f.follower_id::text FROM follows f WHERE f.followee_id = u.id), '{}'),
		        COALESCE(ARRAY(SELECT f.followee_id::text FROM follows f WHERE f.follower_id = u.id), '{}')
		 FROM users u`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var entries []model.UserListEntry
	for rows.Next() {
		var e model.UserListEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Email, &e.ProfileImage,
			pq.Array(&e.Followers), pq.Array(&e.Following)); err != nil {
			return nil, fmt.Errorf("failed to scan user entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return entries, nil
}

// ListFollowers は指定ユーザーのフォロワーを表示用サマリーで返す。
func (r *PostgresUserRepo) ListFollowers(ctx context.Context, userID string) ([]model.UserSummary, error) {
	return r.listEdgeSummaries(ctx,
		`SELECT u.id, u.username FROM follows f
		 JOIN users u ON u.id = f.follower_id
		 WHERE f.followee_id = $1`, userID)
}

// ListFollowing は指定ユーザーのフォロイーを表示用サマリーで返す。
func (r *PostgresUserRepo) ListFollowing(ctx context.Context, userID string) ([]model.UserSummary, error) {
	return r.listEdgeSummaries(ctx,
		`SELECT u.id, u.username FROM follows f
		 JOIN users u ON u.id = f.followee_id
		 WHERE f.follower_id = $1`, userID)
}

// listEdgeSummaries はフォローエッジをユーザーサマリーに解決する共通処理。
func (r *PostgresUserRepo) listEdgeSummaries(ctx context.Context, query, userID string) ([]model.UserSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow edges: %w", err)
	}
	defer rows.Close()

	var summaries []model.UserSummary
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow edges: %w", err)
	}

	return summaries, nil
}

// FollowCounts はフォロワー数とフォロイー数を集合サイズから算出して返す。
func (r *PostgresUserRepo) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	var followers, following int
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM follows WHERE followee_id = $1),
		   (SELECT COUNT(*) FROM follows WHERE follower_id = $1)`,
		userID,
	).Scan(&followers, &following)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count follow edges: %w", err)
	}
	return followers, following, nil
}

// ListLikedPostIDs はユーザーのいいね済み投稿ID一覧を返す。
func (r *PostgresUserRepo) ListLikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id FROM liked_posts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked post ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate liked posts: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
