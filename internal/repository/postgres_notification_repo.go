package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/monknet/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用したフォロー通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// DrainByUserID はキューの全エントリーをフォロワーサマリーに解決して返し、
// 同一トランザクションでキューを無条件にクリアする。
// read-then-clear方式のため、返却後のキューは常に空になる。
func (r *PostgresNotificationRepo) DrainByUserID(ctx context.Context, userID string) ([]model.UserSummary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT u.id, u.username
		 FROM follow_notifications n
		 JOIN users u ON u.id = n.follower_id
		 WHERE n.user_id = $1
		 ORDER BY n.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read notification queue: %w", err)
	}

	var notifications []model.UserSummary
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Username); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	rows.Close()

	// エントリー単位のACKではなく、読み取り後にキュー全体をクリアする
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM follow_notifications WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to clear notification queue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return notifications, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
