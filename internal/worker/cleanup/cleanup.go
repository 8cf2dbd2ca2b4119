// Package cleanup はセッション失効リストの定期削除ジョブを提供する。
// 有効期限を過ぎた失効エントリはトークン自体も期限切れのため、保持する必要がない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper は期限切れの失効エントリを削除し、削除件数を返す。
// session.MemoryRevocationStore が満たす。
type Sweeper interface {
	Sweep(now time.Time) int
}

// SweepRecorder は削除件数を記録する。
type SweepRecorder interface {
	RecordRevocationsSwept(count int)
}

type noopSweepRecorder struct{}

func (noopSweepRecorder) RecordRevocationsSwept(int) {}

// CleanupJob は失効リストの定期削除ジョブ。
// 冪等で、削除対象がない場合も正常終了する。
type CleanupJob struct {
	store    Sweeper
	recorder SweepRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderがnilの場合は記録を行わない。
func NewCleanupJob(store Sweeper, recorder SweepRecorder, logger *slog.Logger) *CleanupJob {
	if recorder == nil {
		recorder = noopSweepRecorder{}
	}
	return &CleanupJob{
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は期限切れの失効エントリを削除し、削除件数を返す。
func (j *CleanupJob) Run() int {
	start := j.now()

	deleted := j.store.Sweep(start)
	j.recorder.RecordRevocationsSwept(deleted)

	j.logger.Info("revocation sweep completed",
		slog.Int("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return deleted
}

// Scheduler はcron式に従ってCleanupJobを実行する。
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler はspec（例: "@every 10m"、"*/5 * * * *"）でjobを登録したSchedulerを生成する。
// specが不正な場合はエラーを返す。
func NewScheduler(job *CleanupJob, spec string) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { job.Run() }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start はバックグラウンドでスケジュール実行を開始する。
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop はスケジュール実行を停止し、実行中のジョブの完了かctxの終了を待つ。
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
