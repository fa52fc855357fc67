package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultInterval = 2 * time.Minute

// RefreshFunc re-syncs the knowledge cache with the guideline store.
type RefreshFunc func(ctx context.Context) error

// Status is a snapshot of the refresher for the system status endpoint.
type Status struct {
	IsRunning       bool   `json:"is_running"`
	IntervalSeconds int    `json:"interval_seconds"`
	LastUpdateTime  string `json:"last_update_time,omitempty"`
	UpdateCount     int    `json:"update_count"`
	NextRunTime     string `json:"next_run_time,omitempty"`
}

// Refresher periodically refreshes the guideline knowledge cache in the
// background. Runs never overlap; a manual trigger that races the timer
// just waits its turn on the lock.
type Refresher struct {
	interval time.Duration
	refresh  RefreshFunc
	log      zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	running     bool
	lastUpdate  time.Time
	nextRun     time.Time
	updateCount int
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewRefresher(interval time.Duration, refresh RefreshFunc, log zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultInterval
	}
	log.Info().Dur("interval", interval).Msg("知识库刷新调度器初始化")
	return &Refresher{
		interval: interval,
		refresh:  refresh,
		log:      log,
		now:      time.Now,
	}
}

// Start launches the background loop and performs an immediate first run.
func (r *Refresher) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.log.Warn().Msg("调度器已在运行中")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.nextRun = r.now().Add(r.interval)
	r.mu.Unlock()

	r.log.Info().Dur("interval", r.interval).Msg("知识库刷新调度器已启动")
	r.runOnce(ctx)

	go r.loop(ctx)
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			r.nextRun = r.now().Add(r.interval)
			r.mu.Unlock()
			r.runOnce(ctx)
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.log.Info().Msg("知识库刷新调度器已停止")
}

// TriggerNow runs a refresh outside the regular schedule.
func (r *Refresher) TriggerNow(ctx context.Context) {
	r.log.Info().Msg("手动触发知识库刷新")
	r.runOnce(ctx)
}

func (r *Refresher) runOnce(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.now()
	r.log.Info().Time("start", start).Msg("开始执行知识库刷新任务")

	if err := r.refresh(ctx); err != nil {
		r.log.Error().Err(err).Msg("知识库刷新失败")
		return
	}

	r.lastUpdate = r.now()
	r.updateCount++
	r.log.Info().
		Dur("duration", r.lastUpdate.Sub(start)).
		Int("update_count", r.updateCount).
		Msg("知识库刷新成功")
}

func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{
		IsRunning:       r.running,
		IntervalSeconds: int(r.interval / time.Second),
		UpdateCount:     r.updateCount,
	}
	if !r.lastUpdate.IsZero() {
		s.LastUpdateTime = r.lastUpdate.Format(time.RFC3339)
	}
	if r.running {
		s.NextRunTime = r.nextRun.Format(time.RFC3339)
	}
	return s
}
