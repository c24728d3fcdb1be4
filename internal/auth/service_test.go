package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfileImage(_ context.Context, _, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) ListAll(_ context.Context) ([]model.UserListEntry, error) { return nil, nil }

func (m *mockUserRepo) ListFollowers(_ context.Context, _ string) ([]model.UserSummary, error) {
	return nil, nil
}

func (m *mockUserRepo) ListFollowing(_ context.Context, _ string) ([]model.UserSummary, error) {
	return nil, nil
}

func (m *mockUserRepo) FollowCounts(_ context.Context, _ string) (int, int, error) {
	return 0, 0, nil
}

func (m *mockUserRepo) ListLikedPostIDs(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

func newTestAuthService(userRepo *mockUserRepo, provider *mockOAuthProvider) *Service {
	if provider == nil {
		provider = &mockOAuthProvider{}
	}
	tokens := NewTokenService("test-secret", time.Hour)
	states := NewStateService("test-secret", 10*time.Minute)
	return NewService(provider, tokens, states, userRepo)
}

// --- 登録のテスト ---

func TestRegister_Success_HashesPassword(t *testing.T) {
	var created *model.User

	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestAuthService(userRepo, nil)

	if err := svc.Register(context.Background(), "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.Username != "alice" {
		t.Errorf("username = %q, want %q", created.Username, "alice")
	}
	if created.PasswordHash == "password123" || created.PasswordHash == "" {
		t.Error("password should be stored as a bcrypt hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("password123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated user ID")
	}
}

func TestRegister_TrimsUsernameAndEmail(t *testing.T) {
	// 前後の空白を除去してから一意性検査と保存を行う。
	// " alice" と "alice" が別ユーザーとして登録できてはならない。
	var probedUsername, probedEmail string
	var created *model.User

	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			probedUsername = username
			return nil, nil
		},
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			probedEmail = email
			return nil, nil
		},
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestAuthService(userRepo, nil)

	if err := svc.Register(context.Background(), "  alice  ", " alice@example.com ", "password123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if probedUsername != "alice" {
		t.Errorf("username probe = %q, want %q", probedUsername, "alice")
	}
	if probedEmail != "alice@example.com" {
		t.Errorf("email probe = %q, want %q", probedEmail, "alice@example.com")
	}
	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.Username != "alice" {
		t.Errorf("stored username = %q, want %q", created.Username, "alice")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("stored email = %q, want %q", created.Email, "alice@example.com")
	}
}

func TestRegister_WhitespaceOnlyUsername_Invalid(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{}, nil)

	err := svc.Register(context.Background(), "   ", "alice@example.com", "password123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
		createFn: func(_ context.Context, _ *model.User) error {
			t.Fatal("Create should not be called when username is taken")
			return nil
		},
	}
	svc := newTestAuthService(userRepo, nil)

	err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "Username already exists" {
		t.Errorf("error message = %q, want %q", apiErr.Message, "Username already exists")
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
	}
	svc := newTestAuthService(userRepo, nil)

	err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "Email already exists" {
		t.Errorf("error message = %q, want %q", apiErr.Message, "Email already exists")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{}, nil)

	err := svc.Register(context.Background(), "", "alice@example.com", "password123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

// --- ログインのテスト ---

func TestLogin_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "alice", PasswordHash: string(hash)}, nil
		},
	}
	svc := newTestAuthService(userRepo, nil)

	result, err := svc.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("expected non-empty token")
	}
	if result.UserID != "user-1" {
		t.Errorf("userID = %q, want %q", result.UserID, "user-1")
	}
}

func TestLogin_UnknownUserAndWrongPassword_SameError(t *testing.T) {
	// ユーザー不在とパスワード不一致で同一のエラー文言を返す
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)

	missingRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, nil
		},
	}
	wrongPassRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: string(hash)}, nil
		},
	}

	_, err1 := newTestAuthService(missingRepo, nil).Login(context.Background(), "ghost", "whatever")
	_, err2 := newTestAuthService(wrongPassRepo, nil).Login(context.Background(), "alice", "wrong")

	var apiErr1, apiErr2 *model.APIError
	if !errors.As(err1, &apiErr1) || !errors.As(err2, &apiErr2) {
		t.Fatalf("expected APIErrors, got %v and %v", err1, err2)
	}
	if apiErr1.Message != apiErr2.Message {
		t.Errorf("error messages differ: %q vs %q", apiErr1.Message, apiErr2.Message)
	}
	if apiErr1.Message != "Invalid username or password" {
		t.Errorf("error message = %q, want %q", apiErr1.Message, "Invalid username or password")
	}
}

// --- OAuthコールバックのテスト ---

func TestHandleGoogleCallback_NewUser_CreatedWithGeneratedUsername(t *testing.T) {
	var created *model.User

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "1234567890",
				Email:          "newuser@example.com",
				Name:           "New User",
				Picture:        "https://example.com/pic.png",
				Provider:       "google",
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, nil
		},
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestAuthService(userRepo, provider)

	state, err := svc.states.Issue()
	if err != nil {
		t.Fatalf("failed to issue state: %v", err)
	}

	result, err := svc.HandleGoogleCallback(context.Background(), "auth-code", state)
	if err != nil {
		t.Fatalf("HandleGoogleCallback() error = %v", err)
	}
	if result.Token == "" {
		t.Error("expected non-empty token")
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.Bio != "Joined via Google" {
		t.Errorf("bio = %q, want %q", created.Bio, "Joined via Google")
	}
	if !strings.HasPrefix(created.Username, "newuser_") {
		t.Errorf("username = %q, want prefix %q", created.Username, "newuser_")
	}
	if created.ProfileImage != "https://example.com/pic.png" {
		t.Errorf("profileImage = %q, want picture from provider", created.ProfileImage)
	}
	if created.PasswordHash != "" {
		t.Error("oauth user should have no password hash")
	}
}

func TestHandleGoogleCallback_ExistingUser_LogsIn(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "999",
				Email:          "existing@example.com",
				Provider:       "google",
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-42", Username: "existing"}, nil
		},
		createFn: func(_ context.Context, _ *model.User) error {
			t.Fatal("Create should not be called for existing user")
			return nil
		},
	}
	svc := newTestAuthService(userRepo, provider)

	state, err := svc.states.Issue()
	if err != nil {
		t.Fatalf("failed to issue state: %v", err)
	}

	result, err := svc.HandleGoogleCallback(context.Background(), "auth-code", state)
	if err != nil {
		t.Fatalf("HandleGoogleCallback() error = %v", err)
	}
	if result.UserID != "user-42" {
		t.Errorf("userID = %q, want %q", result.UserID, "user-42")
	}
}

func TestHandleGoogleCallback_InvalidState_DeniedError(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{}, nil)

	_, err := svc.HandleGoogleCallback(context.Background(), "auth-code", "bogus-state")
	if !errors.Is(err, ErrOAuthDenied) {
		t.Errorf("expected ErrOAuthDenied, got %v", err)
	}
}

func TestHandleGoogleCallback_ExchangeFailure_DeniedError(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return nil, errors.New("token endpoint returned 400")
		},
	}
	svc := newTestAuthService(&mockUserRepo{}, provider)

	state, err := svc.states.Issue()
	if err != nil {
		t.Fatalf("failed to issue state: %v", err)
	}

	_, err = svc.HandleGoogleCallback(context.Background(), "auth-code", state)
	if !errors.Is(err, ErrOAuthDenied) {
		t.Errorf("expected ErrOAuthDenied, got %v", err)
	}
}

func TestGenerateOAuthUsername(t *testing.T) {
	tests := []struct {
		email          string
		providerUserID string
		want           string
	}{
		{"alice@example.com", "1234567890", "alice_567890"},
		{"bob@example.com", "123", "bob_123"},
		{"no-at-sign", "123456", "no-at-sign_123456"},
	}

	for _, tt := range tests {
		got := generateOAuthUsername(tt.email, tt.providerUserID)
		if got != tt.want {
			t.Errorf("generateOAuthUsername(%q, %q) = %q, want %q", tt.email, tt.providerUserID, got, tt.want)
		}
	}
}
