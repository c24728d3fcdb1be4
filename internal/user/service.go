// Package user はユーザープロフィールとフォロー一覧のビジネスロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
	"github.com/hitoshi/monknet/internal/security"
)

// UserData は認証済みユーザー自身のプロフィール情報。
// カウンター系の統計はフォロー集合・いいね集合から算出した値を返す。
type UserData struct {
	User       *model.User
	Stats      model.UserStats
	LikedPosts []string
	PostTitles []model.PostTitle
}

// PublicProfile は公開プロフィール情報。
type PublicProfile struct {
	User  *model.User
	Stats model.UserStats
	Posts []model.PostWithAuthor
}

// Service はユーザーに関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	urlGuard security.URLGuardService
	verifier security.AvatarVerifierService
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	urlGuard security.URLGuardService,
	verifier security.AvatarVerifierService,
) *Service {
	return &Service{
		userRepo: userRepo,
		postRepo: postRepo,
		urlGuard: urlGuard,
		verifier: verifier,
	}
}

// GetUserData は認証済みユーザー自身のプロフィールと統計を取得する。
func (s *Service) GetUserData(ctx context.Context, userID string) (*UserData, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError("User not found")
	}

	stats, err := s.buildStats(ctx, user)
	if err != nil {
		return nil, err
	}

	likedPosts, err := s.userRepo.ListLikedPostIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}

	titles, err := s.postRepo.ListTitlesByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list post titles: %w", err)
	}

	return &UserData{
		User:       user,
		Stats:      stats,
		LikedPosts: likedPosts,
		PostTitles: titles,
	}, nil
}

// GetPublicProfile はユーザー名で公開プロフィールと投稿一覧を取得する。
func (s *Service) GetPublicProfile(ctx context.Context, username string) (*PublicProfile, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError("User not found")
	}

	stats, err := s.buildStats(ctx, user)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.ListByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &PublicProfile{
		User:  user,
		Stats: stats,
		Posts: posts,
	}, nil
}

// buildStats はフォロー集合のサイズと永続化済みカウンターから統計を構築する。
func (s *Service) buildStats(ctx context.Context, user *model.User) (model.UserStats, error) {
	followers, following, err := s.userRepo.FollowCounts(ctx, user.ID)
	if err != nil {
		return model.UserStats{}, fmt.Errorf("failed to count follow edges: %w", err)
	}

	return model.UserStats{
		Followers: followers,
		Following: following,
		Posts:     user.PostCount,
		Likes:     user.Likes,
		Views:     user.Views,
	}, nil
}

// ListAllUsers は全ユーザーのサマリー一覧を返す。
func (s *Service) ListAllUsers(ctx context.Context) ([]model.UserListEntry, error) {
	entries, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return entries, nil
}

// ListFollowers は指定ユーザーのフォロワー一覧を返す。
func (s *Service) ListFollowers(ctx context.Context, userID string) ([]model.UserSummary, error) {
	summaries, err := s.userRepo.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return summaries, nil
}

// ListFollowing は指定ユーザーのフォロイー一覧を返す。
func (s *Service) ListFollowing(ctx context.Context, userID string) ([]model.UserSummary, error) {
	summaries, err := s.userRepo.ListFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return summaries, nil
}

// UpdateProfileImage はプロフィール画像URLを検証して更新し、更新後のユーザーを返す。
// URLの静的検証に加え、設定で有効な場合は実体フェッチによる画像検証を行う。
func (s *Service) UpdateProfileImage(ctx context.Context, userID, imageURL string) (*model.User, error) {
	if imageURL == "" {
		return nil, model.NewInvalidRequestError("Profile image URL is required")
	}

	if err := s.urlGuard.ValidateURL(imageURL); err != nil {
		return nil, model.NewInvalidImageURLError(err.Error())
	}

	if err := s.verifier.Verify(ctx, imageURL); err != nil {
		return nil, model.NewInvalidImageURLError(err.Error())
	}

	user, err := s.userRepo.UpdateProfileImage(ctx, userID, imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile image: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError("User not found")
	}

	slog.Info("profile image updated", slog.String("user_id", userID))

	return user, nil
}
