// Package auth はアカウント登録、ログイン、OAuth認証フローを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ErrOAuthDenied はOAuthフロー自体の失敗（state不正、コード交換失敗）を表す。
// ストア障害などの内部エラーと区別し、ハンドラーでリダイレクト先を分岐するために使う。
var ErrOAuthDenied = errors.New("oauth authentication failed")

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token  string
	UserID string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	tokens   TokenService
	states   StateService
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	tokens TokenService,
	states StateService,
	userRepo repository.UserRepository,
) *Service {
	return &Service{
		oauth:    oauth,
		tokens:   tokens,
		states:   states,
		userRepo: userRepo,
	}
}

// Register は新規ユーザーを登録する。
// ユーザー名とメールアドレスは前後の空白を除去して正規化した上で、
// 一意性をこの順で検査し、衝突した最初の項目のエラーを返す。
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return model.NewInvalidRequestError("All fields are required")
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return model.NewUsernameTakenError()
	}

	existing, err = s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return nil
}

// Login はユーザー名とパスワードで認証し、アクセストークンを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合は同一のエラーを返し、
// アカウントの存在を推測できないようにする。
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{Token: token, UserID: user.ID}, nil
}

// GetLoginURL は署名付きstateを発行し、OAuth認証URLを生成する。
func (s *Service) GetLoginURL() (string, error) {
	state, err := s.states.Issue()
	if err != nil {
		return "", fmt.Errorf("failed to issue state: %w", err)
	}
	return s.oauth.GetLoginURL(state), nil
}

// HandleGoogleCallback はOAuthコールバックを処理し、アクセストークンを発行する。
// stateの検証後に認可コードを交換し、メールアドレスで既存ユーザーを検索する。
// 未登録の場合はユーザーを自動作成する。
func (s *Service) HandleGoogleCallback(ctx context.Context, code, state string) (*LoginResult, error) {
	if err := s.states.Verify(state); err != nil {
		return nil, fmt.Errorf("%w: invalid state: %v", ErrOAuthDenied, err)
	}

	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrOAuthDenied, err)
	}

	user, err := s.userRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		now := time.Now()
		user = &model.User{
			ID:           uuid.New().String(),
			Username:     generateOAuthUsername(userInfo.Email, userInfo.ProviderUserID),
			Email:        userInfo.Email,
			Bio:          "Joined via Google",
			ProfileImage: userInfo.Picture,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create oauth user: %w", err)
		}

		slog.Info("new user created via oauth",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		slog.Info("existing user logged in via oauth",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{Token: token, UserID: user.ID}, nil
}

// generateOAuthUsername はメールアドレスのローカル部とプロバイダーIDの末尾から
// ユーザー名を生成する。
func generateOAuthUsername(email, providerUserID string) string {
	prefix := email
	if i := strings.Index(email, "@"); i >= 0 {
		prefix = email[:i]
	}
	suffix := providerUserID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return prefix + "_" + suffix
}
