// Package ratelimit 커넥션 단위 고정 윈도우 유입 제어
package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

// window 커넥션별 카운터
type window struct {
	count   int
	resetAt time.Time
}

// Limiter 고정 윈도우 카운터 기반 Rate Limiter
type Limiter struct {
	capacity int
	interval time.Duration

	mu      sync.Mutex
	windows map[string]*window

	// 테스트에서 시간 주입용
	now func() time.Time
}

// New Limiter 생성
func New(capacity int, interval time.Duration) *Limiter {
	return &Limiter{
		capacity: capacity,
		interval: interval,
		windows:  make(map[string]*window),
		now:      time.Now,
	}
}

// Allow 이벤트 1건 허용 여부 판정. 윈도우 초과 시 false (무통보 드롭은 호출자 책임)
func (l *Limiter) Allow(connID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[connID]
	if !ok {
		w = &window{resetAt: now.Add(l.interval)}
		l.windows[connID] = w
	}

	// 윈도우 만료 시 리셋
	if !now.Before(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(l.interval)
	}

	w.count++
	return w.count <= l.capacity
}

// Remove 커넥션 종료 시 윈도우 즉시 제거
func (l *Limiter) Remove(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, connID)
}

// Sweep 만료된 유휴 윈도우 정리, 제거된 개수 반환
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for connID, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, connID)
			removed++
		}
	}
	return removed
}

// Size 현재 추적 중인 윈도우 수
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.windows)
}

// RunSweeper 주기적으로 Sweep을 수행하는 백그라운드 루프
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				log.Printf("[RateLimit] Swept %d stale windows", n)
			}
		}
	}
}
