package board

import (
	"sync"
	"time"

	"collab-backend/internal/model"
)

// flushFunc flush된 배치를 영속화/전파하는 콜백
type flushFunc func(points []model.StrokePoint)

// batcher 커넥션 단위 획 포인트 누적 버퍼.
// 크기 도달, end 단계, 유휴 타이머, 종료 중 먼저 오는 시점에 flush한다.
// flush 콜백은 락을 쥔 채 호출되므로 한 커넥션의 배치는 전송 순서대로 커밋된다.
type batcher struct {
	limit int
	delay time.Duration
	flush flushFunc

	mu     sync.Mutex
	points []model.StrokePoint
	timer  *time.Timer
	closed bool
}

// newBatcher batcher 생성
func newBatcher(limit int, delay time.Duration, flush flushFunc) *batcher {
	return &batcher{
		limit: limit,
		delay: delay,
		flush: flush,
	}
}

// Add 포인트 누적. flush 조건 충족 시 즉시 flush
func (b *batcher) Add(p model.StrokePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.points = append(b.points, p)

	if len(b.points) >= b.limit || p.Phase == model.PhaseEnd {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.delay, b.timedFlush)
	} else {
		b.timer.Reset(b.delay)
	}
}

// Flush 버퍼 즉시 비우기 (세션 전환 이벤트 직전 호출)
func (b *batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.flushLocked()
}

// Close 종료 처리: 잔여 버퍼 flush 후 추가 입력 차단
func (b *batcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.flushLocked()
	b.closed = true
}

// timedFlush 유휴 타이머 경로
func (b *batcher) timedFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.flushLocked()
}

func (b *batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	if len(b.points) == 0 {
		return
	}

	points := b.points
	b.points = nil
	b.flush(points)
}
