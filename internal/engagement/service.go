// Package engagement はフォローグラフといいねに関するビジネスロジックを提供する。
package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/monknet/internal/metrics"
	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
)

// Service はフォロー・いいね・投稿削除の状態遷移を提供する。
// カウンターと集合にまたがる更新はリポジトリ層の1トランザクションに委譲し、
// サービス層では状態検査と遷移の可否判定のみを行う。
type Service struct {
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	engagementRepo repository.EngagementRepository
	collector      metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	engagementRepo repository.EngagementRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo:       userRepo,
		postRepo:       postRepo,
		engagementRepo: engagementRepo,
		collector:      collector,
	}
}

// Follow はフォローエッジを作成し、フォロー通知をキューに追加する。
// 自己フォローは拒否する。既にフォロー済みの場合もエッジは重複せず成功し、
// 通知は再度キューに追加される。
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return model.NewSelfFollowError("Cannot follow yourself")
	}

	target, err := s.userRepo.FindByID(ctx, followeeID)
	if err != nil {
		return fmt.Errorf("failed to find followee: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError("User to follow not found")
	}

	if err := s.engagementRepo.CreateEdge(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to create follow edge: %w", err)
	}

	s.collector.RecordFollowCreated()
	slog.Info("user followed",
		slog.String("follower_id", followerID),
		slog.String("followee_id", followeeID),
	)

	return nil
}

// Unfollow はフォローエッジを削除する。
// 自己アンフォローは拒否する。フォローしていない相手へのアンフォローは
// 何も変更せず成功する（冪等）。
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return model.NewSelfFollowError("Cannot unfollow yourself")
	}

	target, err := s.userRepo.FindByID(ctx, followeeID)
	if err != nil {
		return fmt.Errorf("failed to find followee: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError("User to unfollow not found")
	}

	if err := s.engagementRepo.DeleteEdge(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to delete follow edge: %w", err)
	}

	s.collector.RecordFollowRemoved()
	slog.Info("user unfollowed",
		slog.String("follower_id", followerID),
		slog.String("followee_id", followeeID),
	)

	return nil
}

// ToggleLike はいいね状態の遷移を適用する。
// 状態の検査と更新は投稿者のいいね済み集合に対して行う。
// liked=trueで既にいいね済みの場合、liked=falseで未いいねの場合は
// 状態を変更せずエラーを返す。
func (s *Service) ToggleLike(ctx context.Context, postID string, liked bool) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError()
	}

	current, err := s.engagementRepo.IsLiked(ctx, post.AuthorID, postID)
	if err != nil {
		return fmt.Errorf("failed to check like state: %w", err)
	}

	if liked && current {
		return model.NewAlreadyLikedError()
	}
	if !liked && !current {
		return model.NewNotLikedError()
	}

	if err := s.engagementRepo.ApplyLike(ctx, post.AuthorID, postID, liked); err != nil {
		return fmt.Errorf("failed to apply like transition: %w", err)
	}

	s.collector.RecordLikeToggled(liked)
	slog.Info("like toggled",
		slog.String("post_id", postID),
		slog.Bool("liked", liked),
	)

	return nil
}

// DeletePost は投稿を削除する。投稿者本人のみが削除でき、
// 削除時に投稿者のpost_countを無条件にデクリメントする。
func (s *Service) DeletePost(ctx context.Context, principalID, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError()
	}

	if post.AuthorID != principalID {
		return model.NewForbiddenError("Not allowed to delete this post")
	}

	if err := s.engagementRepo.DeletePostWithCounter(ctx, postID, post.AuthorID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.collector.RecordPostDeleted()
	slog.Info("post deleted",
		slog.String("post_id", postID),
		slog.String("author_id", post.AuthorID),
	)

	return nil
}
