// Package cleanup は期限切れ管理者セッションの定期削除ジョブを提供する。
// セッションCookieの有効期間（SESSION_MAX_AGE）を過ぎたセッションは
// ブラウザから送られることがないため、保存先から削除しても挙動は変わらない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval は定期実行の既定間隔。
const DefaultInterval = time.Hour

// SessionPurger は作成日時が指定時刻より前のセッションを削除する。
// repository.PostgresSessionRepo と repository.MemorySessionRepo が実装する。
type SessionPurger interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は期限切れ管理者セッションの削除ジョブ。
// 冪等であり、削除対象がない場合もエラーにしない。
type CleanupJob struct {
	purger SessionPurger
	logger *slog.Logger
	now    func() time.Time
	MaxAge time.Duration // セッションの最大有効期間
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger SessionPurger, maxAge time.Duration, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		purger: purger,
		logger: logger,
		now:    time.Now,
		MaxAge: maxAge,
	}
}

// Run は作成からMaxAge以上経過したセッションを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.MaxAge)

	deleted, err := j.purger.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("session cleanup failed",
			slog.String("error", err.Error()),
			slog.Duration("max_age", j.MaxAge),
		)
		return fmt.Errorf("session cleanup failed: %w", err)
	}

	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Duration("max_age", j.MaxAge),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行したあと、intervalごとにRunを繰り返す。
// コンテキストがキャンセルされるまでブロックする。失敗はログに記録して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
