// Package post は投稿の作成とフィード取得のビジネスロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/monknet/internal/metrics"
	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
	"github.com/hitoshi/monknet/internal/security"
)

// feedPageSize はフィード1ページあたりの投稿数。
const feedPageSize = 5

// CreatePostInput は投稿作成の入力。
type CreatePostInput struct {
	Title   string
	Content string
	Image   string
	Tags    []string
}

// Service は投稿に関するビジネスロジックを提供する。
type Service struct {
	postRepo  repository.PostRepository
	sanitizer security.ContentSanitizerService
	urlGuard  security.URLGuardService
	collector metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	postRepo repository.PostRepository,
	sanitizer security.ContentSanitizerService,
	urlGuard security.URLGuardService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		postRepo:  postRepo,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
		collector: collector,
	}
}

// CreatePost は投稿を作成し、投稿者のpost_countをインクリメントする。
// 本文は必須で、保存前にHTMLサニタイズを通す。
// 画像URLが指定されている場合は安全性を検証する。
func (s *Service) CreatePost(ctx context.Context, authorID string, input CreatePostInput) (*model.Post, error) {
	if input.Content == "" {
		return nil, model.NewInvalidRequestError("Content is required")
	}

	if input.Image != "" {
		if err := s.urlGuard.ValidateURL(input.Image); err != nil {
			return nil, model.NewInvalidImageURLError(err.Error())
		}
	}

	now := time.Now()
	post := &model.Post{
		ID:        uuid.New().String(),
		Title:     input.Title,
		Content:   s.sanitizer.Sanitize(input.Content),
		AuthorID:  authorID,
		Image:     input.Image,
		Tags:      input.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.CreateWithCounter(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.collector.RecordPostCreated()
	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("author_id", authorID),
	)

	return post, nil
}

// ListFeed は全投稿のフィードをページ番号指定で返す。
// 1ページは5件固定、作成日時降順。不正なページ番号は1として扱う。
// 範囲外のページは空列を返す。
func (s *Service) ListFeed(ctx context.Context, page int) ([]model.PostWithAuthor, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * feedPageSize
	posts, err := s.postRepo.ListFeed(ctx, offset, feedPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}

	return posts, nil
}
