// Package notification はフォロー通知キューのビジネスロジックを提供する。
package notification

import (
	"context"
	"fmt"

	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/repository"
)

// Service はフォロー通知に関するビジネスロジックを提供する。
type Service struct {
	notificationRepo repository.NotificationRepository
}

// NewService はServiceを生成する。
func NewService(notificationRepo repository.NotificationRepository) *Service {
	return &Service{notificationRepo: notificationRepo}
}

// Drain は未読のフォロー通知をすべて取得し、キューをクリアする。
// 取得とクリアは不可分で、同じ通知が2回配信されることはない。
func (s *Service) Drain(ctx context.Context, userID string) ([]model.UserSummary, error) {
	notifications, err := s.notificationRepo.DrainByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to drain notifications: %w", err)
	}
	return notifications, nil
}
