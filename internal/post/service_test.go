package post

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/monknet/internal/metrics"
	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
	"github.com/hitoshi/monknet/internal/security"
)

type mockPostRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.Post, error)
	createWithCounterFn  func(ctx context.Context, post *model.Post) error
	listFeedFn           func(ctx context.Context, offset, limit int) ([]model.PostWithAuthor, error)
	listByAuthorFn       func(ctx context.Context, authorID string) ([]model.PostWithAuthor, error)
	listTitlesByAuthorFn func(ctx context.Context, authorID string) ([]model.PostTitle, error)
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockPostRepo) CreateWithCounter(ctx context.Context, post *model.Post) error {
	return m.createWithCounterFn(ctx, post)
}

func (m *mockPostRepo) ListFeed(ctx context.Context, offset, limit int) ([]model.PostWithAuthor, error) {
	return m.listFeedFn(ctx, offset, limit)
}

func (m *mockPostRepo) ListByAuthor(ctx context.Context, authorID string) ([]model.PostWithAuthor, error) {
	return m.listByAuthorFn(ctx, authorID)
}

func (m *mockPostRepo) ListTitlesByAuthor(ctx context.Context, authorID string) ([]model.PostTitle, error) {
	return m.listTitlesByAuthorFn(ctx, authorID)
}

type mockSanitizer struct {
	sanitizeFn func(rawHTML string) string
}

var _ security.ContentSanitizerService = (*mockSanitizer)(nil)

func (m *mockSanitizer) Sanitize(rawHTML string) string {
	if m.sanitizeFn != nil {
		return m.sanitizeFn(rawHTML)
	}
	return rawHTML
}

type mockURLGuard struct {
	validateURLFn func(rawURL string) error
}

var _ security.URLGuardService = (*mockURLGuard)(nil)

func (m *mockURLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (m *mockURLGuard) ValidateURL(rawURL string) error {
	if m.validateURLFn != nil {
		return m.validateURLFn(rawURL)
	}
	return nil
}

func newTestService(repo *mockPostRepo, sanitizer *mockSanitizer, guard *mockURLGuard) *Service {
	return NewService(repo, sanitizer, guard, metrics.NopCollector{})
}

func TestCreatePost_EmptyContent(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, &mockSanitizer{}, &mockURLGuard{})

	_, err := svc.CreatePost(context.Background(), "user-1", CreatePostInput{Title: "title"})
	if err == nil {
		t.Fatal("expected error for empty content")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
	if apiErr.Message != "Content is required" {
		t.Errorf("message = %q, want %q", apiErr.Message, "Content is required")
	}
}

func TestCreatePost_Success_SanitizesContent(t *testing.T) {
	var created *model.Post
	repo := &mockPostRepo{
		createWithCounterFn: func(ctx context.Context, post *model.Post) error {
			created = post
			return nil
		},
	}
	sanitizer := &mockSanitizer{
		sanitizeFn: func(rawHTML string) string {
			return strings.ReplaceAll(rawHTML, "<script>alert(1)</script>", "")
		},
	}
	svc := newTestService(repo, sanitizer, &mockURLGuard{})

	post, err := svc.CreatePost(context.Background(), "user-1", CreatePostInput{
		Title:   "hello",
		Content: "<p>body</p><script>alert(1)</script>",
		Tags:    []string{"go", "web"},
	})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected CreateWithCounter to be called")
	}
	if post.Content != "<p>body</p>" {
		t.Errorf("content = %q, want sanitized %q", post.Content, "<p>body</p>")
	}
	if post.AuthorID != "user-1" {
		t.Errorf("authorID = %q, want %q", post.AuthorID, "user-1")
	}
	if post.ID == "" {
		t.Error("expected generated post ID")
	}
	if post.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestCreatePost_InvalidImageURL(t *testing.T) {
	guard := &mockURLGuard{
		validateURLFn: func(rawURL string) error {
			return errors.New("URL points to a blocked IP address")
		},
	}
	svc := newTestService(&mockPostRepo{}, &mockSanitizer{}, guard)

	_, err := svc.CreatePost(context.Background(), "user-1", CreatePostInput{
		Content: "body",
		Image:   "http://169.254.169.254/latest/meta-data",
	})
	if err == nil {
		t.Fatal("expected error for blocked image URL")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidImageURL {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidImageURL)
	}
}

func TestCreatePost_NoImage_SkipsURLValidation(t *testing.T) {
	guard := &mockURLGuard{
		validateURLFn: func(rawURL string) error {
			t.Error("ValidateURL should not be called for empty image")
			return nil
		},
	}
	repo := &mockPostRepo{
		createWithCounterFn: func(ctx context.Context, post *model.Post) error { return nil },
	}
	svc := newTestService(repo, &mockSanitizer{}, guard)

	if _, err := svc.CreatePost(context.Background(), "user-1", CreatePostInput{Content: "body"}); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
}

func TestListFeed_PageOffsets(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		wantOffset int
	}{
		{"first page", 1, 0},
		{"second page", 2, 5},
		{"tenth page", 10, 45},
		{"zero page treated as first", 0, 0},
		{"negative page treated as first", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOffset, gotLimit int
			repo := &mockPostRepo{
				listFeedFn: func(ctx context.Context, offset, limit int) ([]model.PostWithAuthor, error) {
					gotOffset = offset
					gotLimit = limit
					return nil, nil
				},
			}
			svc := newTestService(repo, &mockSanitizer{}, &mockURLGuard{})

			if _, err := svc.ListFeed(context.Background(), tt.page); err != nil {
				t.Fatalf("ListFeed() error = %v", err)
			}
			if gotOffset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", gotOffset, tt.wantOffset)
			}
			if gotLimit != feedPageSize {
				t.Errorf("limit = %d, want %d", gotLimit, feedPageSize)
			}
		})
	}
}

func TestListFeed_RepositoryError(t *testing.T) {
	repo := &mockPostRepo{
		listFeedFn: func(ctx context.Context, offset, limit int) ([]model.PostWithAuthor, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestService(repo, &mockSanitizer{}, &mockURLGuard{})

	if _, err := svc.ListFeed(context.Background(), 1); err == nil {
		t.Fatal("expected error from repository failure")
	}
}
