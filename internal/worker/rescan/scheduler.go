// Package rescan は保存済みROIスコアの定期再計算を提供する。
// スコアリング表の変更やトライアル期限の経過で生じたずれを、
// ユーザー単位の並列バッチで修正する。
package rescan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/subsense/internal/action"
	"github.com/hitoshi/subsense/internal/metrics"
	"github.com/hitoshi/subsense/internal/model"
	"github.com/hitoshi/subsense/internal/repository"
	"github.com/hitoshi/subsense/internal/valuation"
)

// defaultMaxConcurrency はmaxConcurrency未指定時の同時処理ユーザー数。
const defaultMaxConcurrency = 10

// SubscriptionStore は再計算に必要な購読リポジトリの操作。
type SubscriptionStore interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Subscription, error)
	Update(ctx context.Context, id string, mutate repository.SubscriptionMutator) (*model.Subscription, error)
}

// Result は1サイクルの集計。
type Result struct {
	Users       int
	Scanned     int
	Rescored    int
	ActionItems int
	Failed      int
}

// Scheduler は再スコアリングのスケジューリングと並列制御を行う。
// semaphoreパターンで同時に処理するユーザー数を制限する。
type Scheduler struct {
	subs           SubscriptionStore
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。mはnilでもよい。
func NewScheduler(
	subs SubscriptionStore,
	m metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		subs:           subs,
		metrics:        m,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

// Start はinterval間隔でRunOnceを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("再スコアリングスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	s.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("再スコアリングスケジューラを停止しました")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("再スコアリングサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は購読を持つ全ユーザーについて1回ずつ再計算を行う。
// ユーザー単位の失敗はログに残して処理を続け、Result.Failedに数える。
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()

	userIDs, err := s.subs.ListUserIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("対象ユーザーの取得に失敗しました: %w", err)
	}
	if len(userIDs) == 0 {
		s.logger.Info("再スコアリング対象のユーザーはいません")
		return Result{}, nil
	}

	var (
		scanned, rescored, items, failed atomic.Int64
		wg                               sync.WaitGroup
	)
	sem := make(chan struct{}, s.maxConcurrency)

loop:
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		wg.Add(1)

		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			n, changed, generated, err := s.rescanUser(ctx, userID)
			scanned.Add(int64(n))
			rescored.Add(int64(changed))
			items.Add(int64(generated))
			if err != nil {
				failed.Add(1)
				s.logger.Error("ユーザーの再スコアリングに失敗しました",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}
		}(userID)
	}
	wg.Wait()

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordRescanDuration(duration)
	}

	result := Result{
		Users:       len(userIDs),
		Scanned:     int(scanned.Load()),
		Rescored:    int(rescored.Load()),
		ActionItems: int(items.Load()),
		Failed:      int(failed.Load()),
	}
	s.logger.Info("再スコアリングサイクルが完了しました",
		slog.Int("user_count", result.Users),
		slog.Int("scanned", result.Scanned),
		slog.Int("rescored", result.Rescored),
		slog.Int("action_items", result.ActionItems),
		slog.Int("failed", result.Failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return result, ctx.Err()
}

// rescanUser は1ユーザーの購読を評価し直し、保存値とずれている購読だけを書き戻す。
// 書き戻しはリポジトリの行ロック付き更新で行い、派生値はリポジトリ側で再計算される。
func (s *Scheduler) rescanUser(ctx context.Context, userID string) (scanned, rescored, generated int, err error) {
	subs, err := s.subs.ListByUserID(ctx, userID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}

	for i := range subs {
		a := valuation.AssessSubscription(&subs[i])
		if a.Score == subs[i].ROIScore && a.Status == subs[i].Status {
			continue
		}
		updated, err := s.subs.Update(ctx, subs[i].ID, nil)
		if err != nil {
			return len(subs), rescored, 0, fmt.Errorf("購読 %s の再計算に失敗しました: %w", subs[i].ID, err)
		}
		if updated == nil {
			// 走査中に削除された
			continue
		}
		s.logger.Debug("ROIスコアを再計算しました",
			slog.String("subscription_id", updated.ID),
			slog.Int("old_score", subs[i].ROIScore),
			slog.Int("new_score", updated.ROIScore),
		)
		subs[i] = *updated
		rescored++
		if s.metrics != nil {
			s.metrics.RecordSubscriptionScored(string(updated.Status))
		}
	}

	items := action.Generate(subs, s.now())
	if s.metrics != nil {
		for _, it := range items {
			s.metrics.RecordActionItem(string(it.Type))
		}
	}
	return len(subs), rescored, len(items), nil
}
