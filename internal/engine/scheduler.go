package engine

import (
	"context"
	"runtime"
	"time"
)

// Scheduler вызывает step с заданным интервалом на одной горутине, пока
// step не вернет false или не будет отменен ctx. Шаги никогда не
// выполняются параллельно.
type Scheduler interface {
	Run(ctx context.Context, interval time.Duration, step func(now time.Time) bool) error
}

// RealtimeScheduler тикает по настоящему таймеру (~60 Гц).
type RealtimeScheduler struct{}

func (RealtimeScheduler) Run(ctx context.Context, interval time.Duration, step func(now time.Time) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !step(time.Now()) {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			// отмена проверяется перед каждым тиком
			if err := ctx.Err(); err != nil {
				return err
			}
			if !step(now) {
				return nil
			}
		}
	}
}

// VirtualScheduler прогоняет тики без ожидания, с виртуальными часами.
// Результат детерминирован и не зависит от загрузки машины.
type VirtualScheduler struct {
	Start time.Time
}

func (s *VirtualScheduler) Run(ctx context.Context, interval time.Duration, step func(now time.Time) bool) error {
	now := s.Start
	if now.IsZero() {
		now = time.Unix(0, 0)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !step(now) {
			return nil
		}
		now = now.Add(interval)
		runtime.Gosched()
	}
}
