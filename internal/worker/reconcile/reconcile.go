// Package reconcile はカウンター整合ジョブを提供する。
// 非正規化カウンター（posts.likes, users.likes, users.post_count）は
// いいね集合・投稿テーブルの射影であり、障害タイミングによっては
// 真の集合サイズとずれることがある。本ジョブは定期バッチで
// カウンターを集合サイズから再計算し、ずれている行のみを修復する。
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/monknet/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ReconcileJob はカウンター整合ジョブ。
// 冪等なバッチとして設計されており、ずれのない状態で実行しても何も変更しない。
type ReconcileJob struct {
	db        Executor
	logger    *slog.Logger
	collector metrics.MetricsCollector
}

// NewReconcileJob は新しいReconcileJobを生成する。
func NewReconcileJob(db Executor, logger *slog.Logger, collector metrics.MetricsCollector) *ReconcileJob {
	return &ReconcileJob{
		db:        db,
		logger:    logger,
		collector: collector,
	}
}

// Run は3種類のカウンターを集合サイズから再計算して修復する。
//   - posts.likes: liked_postsでその投稿を参照する行数
//   - users.likes: そのユーザーのいいね済み集合のサイズ
//   - users.post_count: そのユーザーが投稿者である投稿数
//
// 一致している行は更新しないため、無変更時のWALコストはかからない。
func (j *ReconcileJob) Run(ctx context.Context) error {
	start := time.Now()

	repaired := int64(0)

	n, err := j.repair(ctx, `
		UPDATE posts p SET likes = c.cnt
		FROM (SELECT p2.id, COUNT(lp.post_id) AS cnt
		      FROM posts p2
		      LEFT JOIN liked_posts lp ON lp.post_id = p2.id
		      GROUP BY p2.id) c
		WHERE p.id = c.id AND p.likes <> c.cnt`)
	if err != nil {
		return fmt.Errorf("failed to reconcile post like counters: %w", err)
	}
	repaired += n

	n, err = j.repair(ctx, `
		UPDATE users u SET likes = c.cnt
		FROM (SELECT u2.id, COUNT(lp.post_id) AS cnt
		      FROM users u2
		      LEFT JOIN liked_posts lp ON lp.user_id = u2.id
		      GROUP BY u2.id) c
		WHERE u.id = c.id AND u.likes <> c.cnt`)
	if err != nil {
		return fmt.Errorf("failed to reconcile user like counters: %w", err)
	}
	repaired += n

	n, err = j.repair(ctx, `
		UPDATE users u SET post_count = c.cnt
		FROM (SELECT u2.id, COUNT(p.id) AS cnt
		      FROM users u2
		      LEFT JOIN posts p ON p.author_id = u2.id
		      GROUP BY u2.id) c
		WHERE u.id = c.id AND u.post_count <> c.cnt`)
	if err != nil {
		return fmt.Errorf("failed to reconcile post count counters: %w", err)
	}
	repaired += n

	j.collector.RecordCounterRepairs(int(repaired))

	duration := time.Since(start)
	j.logger.Info("カウンター整合ジョブが完了しました",
		slog.Int64("repaired_count", repaired),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// repair は修復クエリを実行し、更新行数を返す。
func (j *ReconcileJob) repair(ctx context.Context, query string) (int64, error) {
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
