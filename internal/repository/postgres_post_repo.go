package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/monknet/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, author_id, image, likes, comments, shares, tags, created_at, updated_at
		 FROM posts WHERE id = $1`, id,
	).Scan(
		&post.ID, &post.Title, &post.Content, &post.AuthorID, &post.Image,
		&post.Likes, &post.Comments, &post.Shares, pq.Array(&post.Tags),
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

// CreateWithCounter は投稿の作成と投稿者のpost_countインクリメントを
// 同一トランザクションで実行する。
func (r *PostgresPostRepo) CreateWithCounter(ctx context.Context, post *model.Post) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, author_id, image, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.Title, post.Content, post.AuthorID, post.Image,
		pq.Array(post.Tags), post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET post_count = post_count + 1, updated_at = now() WHERE id = $1`,
		post.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const postWithAuthorColumns = `p.id, p.title, p.content, p.author_id, p.image,
	       p.likes, p.comments, p.shares, p.tags, p.created_at, p.updated_at,
	       u.username, u.email`

// ListFeed は全投稿を作成日時降順・オフセットページネーションで返す。
func (r *PostgresPostRepo) ListFeed(ctx context.Context, offset, limit int) ([]model.PostWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postWithAuthorColumns+`
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 ORDER BY p.created_at DESC
		 OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	defer rows.Close()

	return scanPostsWithAuthor(rows)
}

// ListByAuthor は指定ユーザーの投稿を作成日時降順で返す。
func (r *PostgresPostRepo) ListByAuthor(ctx context.Context, authorID string) ([]model.PostWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postWithAuthorColumns+`
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 WHERE p.author_id = $1
		 ORDER BY p.created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}
	defer rows.Close()

	return scanPostsWithAuthor(rows)
}

// scanPostsWithAuthor は投稿+投稿者JOINの結果セットを読み込む共通処理。
func scanPostsWithAuthor(rows *sql.Rows) ([]model.PostWithAuthor, error) {
	var posts []model.PostWithAuthor
	for rows.Next() {
		var p model.PostWithAuthor
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.Image,
			&p.Likes, &p.Comments, &p.Shares, pq.Array(&p.Tags),
			&p.CreatedAt, &p.UpdatedAt,
			&p.AuthorUsername, &p.AuthorEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// ListTitlesByAuthor は指定ユーザーの投稿タイトル一覧を返す。
func (r *PostgresPostRepo) ListTitlesByAuthor(ctx context.Context, authorID string) ([]model.PostTitle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title FROM posts WHERE author_id = $1 ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list post titles: %w", err)
	}
	defer rows.Close()

	var titles []model.PostTitle
	for rows.Next() {
		var t model.PostTitle
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("failed to scan post title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post titles: %w", err)
	}

	return titles, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
