package user

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
	"github.com/hitoshi/monknet/internal/security"
)

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn     func(ctx context.Context, username string) (*model.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.User, error)
	createFn             func(ctx context.Context, user *model.User) error
	updateProfileImageFn func(ctx context.Context, userID, imageURL string) (*model.User, error)
	listAllFn            func(ctx context.Context) ([]model.UserListEntry, error)
	listFollowersFn      func(ctx context.Context, userID string) ([]model.UserSummary, error)
	listFollowingFn      func(ctx context.Context, userID string) ([]model.UserSummary, error)
	followCountsFn       func(ctx context.Context, userID string) (int, int, error)
	listLikedPostIDsFn   func(ctx context.Context, userID string) ([]string, error)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.findByUsernameFn(ctx, username)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findByEmailFn(ctx, email)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFn(ctx, user)
}

func (m *mockUserRepo) UpdateProfileImage(ctx context.Context, userID, imageURL string) (*model.User, error) {
	return m.updateProfileImageFn(ctx, userID, imageURL)
}

func (m *mockUserRepo) ListAll(ctx context.Context) ([]model.UserListEntry, error) {
	return m.listAllFn(ctx)
}

func (m *mockUserRepo) ListFollowers(ctx context.Context, userID string) ([]model.UserSummary, error) {
	return m.listFollowersFn(ctx, userID)
}

func (m *mockUserRepo) ListFollowing(ctx context.Context, userID string) ([]model.UserSummary, error) {
	return m.listFollowingFn(ctx, userID)
}

func (m *mockUserRepo) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	return m.followCountsFn(ctx, userID)
}

func (m *mockUserRepo) ListLikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	return m.listLikedPostIDsFn(ctx, userID)
}

type mockPostRepo struct {
	listByAuthorFn       func(ctx context.Context, authorID string) ([]model.PostWithAuthor, error)
	listTitlesByAuthorFn func(ctx context.Context, authorID string) ([]model.PostTitle, error)
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return nil, nil
}

func (m *mockPostRepo) CreateWithCounter(ctx context.Context, post *model.Post) error {
	return nil
}

func (m *mockPostRepo) ListFeed(ctx context.Context, offset, limit int) ([]model.PostWithAuthor, error) {
	return nil, nil
}

func (m *mockPostRepo) ListByAuthor(ctx context.Context, authorID string) ([]model.PostWithAuthor, error) {
	return m.listByAuthorFn(ctx, authorID)
}

func (m *mockPostRepo) ListTitlesByAuthor(ctx context.Context, authorID string) ([]model.PostTitle, error) {
	if m.listTitlesByAuthorFn != nil {
		return m.listTitlesByAuthorFn(ctx, authorID)
	}
	return nil, nil
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

type mockAvatarVerifier struct {
	verifyFn func(ctx context.Context, imageURL string) error
}

var _ security.AvatarVerifierService = (*mockAvatarVerifier)(nil)

func (m *mockAvatarVerifier) Verify(ctx context.Context, imageURL string) error {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, imageURL)
	}
	return nil
}

func TestGetUserData_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) { return nil, nil },
	}
	svc := NewService(repo, &mockPostRepo{}, &mockURLGuard{}, &mockAvatarVerifier{})

	_, err := svc.GetUserData(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for missing user")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestGetUserData_BuildsStatsFromEdgesAndCounters(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "alice", PostCount: 7, Likes: 12, Views: 300}, nil
		},
		followCountsFn: func(ctx context.Context, userID string) (int, int, error) {
			return 3, 5, nil
		},
		listLikedPostIDsFn: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"post-1", "post-2"}, nil
		},
	}
	svc := NewService(repo, &mockPostRepo{}, &mockURLGuard{}, &mockAvatarVerifier{})

	data, err := svc.GetUserData(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUserData() error = %v", err)
	}

	want := model.UserStats{Followers: 3, Following: 5, Posts: 7, Likes: 12, Views: 300}
	if data.Stats != want {
		t.Errorf("stats = %+v, want %+v", data.Stats, want)
	}
	if len(data.LikedPosts) != 2 {
		t.Errorf("likedPosts length = %d, want 2", len(data.LikedPosts))
	}
}

func TestGetUserData_IncludesOwnPostTitles(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "alice"}, nil
		},
		followCountsFn: func(ctx context.Context, userID string) (int, int, error) { return 0, 0, nil },
		listLikedPostIDsFn: func(ctx context.Context, userID string) ([]string, error) {
			return nil, nil
		},
	}
	postRepo := &mockPostRepo{
		listTitlesByAuthorFn: func(ctx context.Context, authorID string) ([]model.PostTitle, error) {
			if authorID != "user-1" {
				t.Errorf("authorID = %q, want %q", authorID, "user-1")
			}
			return []model.PostTitle{
				{ID: "post-2", Title: "Second"},
				{ID: "post-1", Title: "First"},
			}, nil
		},
	}
	svc := NewService(repo, postRepo, &mockURLGuard{}, &mockAvatarVerifier{})

	data, err := svc.GetUserData(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUserData() error = %v", err)
	}
	if len(data.PostTitles) != 2 {
		t.Fatalf("postTitles length = %d, want 2", len(data.PostTitles))
	}
	if data.PostTitles[0].Title != "Second" {
		t.Errorf("first title = %q, want %q", data.PostTitles[0].Title, "Second")
	}
}

func TestGetPublicProfile_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) { return nil, nil },
	}
	svc := NewService(repo, &mockPostRepo{}, &mockURLGuard{}, &mockAvatarVerifier{})

	_, err := svc.GetPublicProfile(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error for missing user")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Message != "User not found" {
		t.Errorf("message = %q, want %q", apiErr.Message, "User not found")
	}
}

func TestGetPublicProfile_IncludesAuthorPosts(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "alice"}, nil
		},
		followCountsFn: func(ctx context.Context, userID string) (int, int, error) { return 0, 0, nil },
	}
	postRepo := &mockPostRepo{
		listByAuthorFn: func(ctx context.Context, authorID string) ([]model.PostWithAuthor, error) {
			if authorID != "user-1" {
				t.Errorf("authorID = %q, want %q", authorID, "user-1")
			}
			return []model.PostWithAuthor{
				{Post: model.Post{ID: "post-1", AuthorID: "user-1"}},
			}, nil
		},
	}
	svc := NewService(repo, postRepo, &mockURLGuard{}, &mockAvatarVerifier{})

	profile, err := svc.GetPublicProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetPublicProfile() error = %v", err)
	}
	if len(profile.Posts) != 1 {
		t.Errorf("posts length = %d, want 1", len(profile.Posts))
	}
}

func TestUpdateProfileImage_EmptyURL(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockPostRepo{}, &mockURLGuard{}, &mockAvatarVerifier{})

	_, err := svc.UpdateProfileImage(context.Background(), "user-1", "")
	if err == nil {
		t.Fatal("expected error for empty URL")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

func TestUpdateProfileImage_BlockedURL(t *testing.T) {
	guard := &mockURLGuard{
		validateURLFn: func(rawURL string) error {
			return errors.New("URL points to a blocked IP address")
		},
	}
	svc := NewService(&mockUserRepo{}, &mockPostRepo{}, guard, &mockAvatarVerifier{})

	_, err := svc.UpdateProfileImage(context.Background(), "user-1", "http://10.0.0.1/a.png")
	if err == nil {
		t.Fatal("expected error for blocked URL")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidImageURL {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidImageURL)
	}
}

func TestUpdateProfileImage_VerifierRejects(t *testing.T) {
	verifier := &mockAvatarVerifier{
		verifyFn: func(ctx context.Context, imageURL string) error {
			return errors.New("content type is not an image")
		},
	}
	svc := NewService(&mockUserRepo{}, &mockPostRepo{}, &mockURLGuard{}, verifier)

	_, err := svc.UpdateProfileImage(context.Background(), "user-1", "https://example.com/not-image")
	if err == nil {
		t.Fatal("expected error when content verification fails")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidImageURL {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidImageURL)
	}
}

func TestUpdateProfileImage_UserNotFound(t *testing.T) {
	repo := &mockUserRepo{
		updateProfileImageFn: func(ctx context.Context, userID, imageURL string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, &mockPostRepo{}, &mockURLGuard{}, &mockAvatarVerifier{})

	_, err := svc.UpdateProfileImage(context.Background(), "missing", "https://example.com/a.png")
	if err == nil {
		t.Fatal("expected error for missing user")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestUpdateProfileImage_Success(t *testing.T) {
	repo := &mockUserRepo{
		updateProfileImageFn: func(ctx context.Context, userID, imageURL string) (*model.User, error) {
			return &model.User{ID: userID, ProfileImage: imageURL}, nil
		},
	}
	svc := NewService(repo, &mockPostRepo{}, &mockURLGuard{}, &mockAvatarVerifier{})

	user, err := svc.UpdateProfileImage(context.Background(), "user-1", "https://example.com/a.png")
	if err != nil {
		t.Fatalf("UpdateProfileImage() error = %v", err)
	}
	if user.ProfileImage != "https://example.com/a.png" {
		t.Errorf("profileImage = %q, want %q", user.ProfileImage, "https://example.com/a.png")
	}
}
