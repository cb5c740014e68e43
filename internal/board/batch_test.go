package board

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-backend/internal/model"
)

// collector flush 결과 수집기
type collector struct {
	mu      sync.Mutex
	batches [][]model.StrokePoint
}

func (c *collector) collect(points []model.StrokePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, points)
}

func (c *collector) all() [][]model.StrokePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]model.StrokePoint, len(c.batches))
	copy(out, c.batches)
	return out
}

func movePoint(x float64) model.StrokePoint {
	return model.StrokePoint{X: x, Y: 1, Mode: model.ModeDraw, Phase: model.PhaseMove}
}

func TestBatcherFlushesAtSizeThreshold(t *testing.T) {
	t.Parallel()

	col := &collector{}
	b := newBatcher(3, time.Hour, col.collect)

	b.Add(movePoint(1))
	b.Add(movePoint(2))
	assert.Empty(t, col.all())

	b.Add(movePoint(3))

	batches := col.all()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
	assert.Equal(t, 1.0, batches[0][0].X)
	assert.Equal(t, 3.0, batches[0][2].X)
}

func TestBatcherFlushesOnEndPhase(t *testing.T) {
	t.Parallel()

	col := &collector{}
	b := newBatcher(100, time.Hour, col.collect)

	b.Add(model.StrokePoint{X: 1, Y: 1, Mode: model.ModeDraw, Phase: model.PhaseStart})
	b.Add(movePoint(2))
	b.Add(model.StrokePoint{X: 3, Y: 1, Mode: model.ModeDraw, Phase: model.PhaseEnd})

	batches := col.all()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
}

func TestBatcherFlushesOnIdleTimer(t *testing.T) {
	t.Parallel()

	col := &collector{}
	b := newBatcher(100, 5*time.Millisecond, col.collect)

	b.Add(movePoint(1))

	assert.Eventually(t, func() bool {
		return len(col.all()) == 1
	}, time.Second, time.Millisecond)
}

func TestBatcherCloseFlushesResidual(t *testing.T) {
	t.Parallel()

	col := &collector{}
	b := newBatcher(100, time.Hour, col.collect)

	b.Add(movePoint(1))
	b.Add(movePoint(2))
	b.Close()

	batches := col.all()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)

	// 종료 후 입력은 무시
	b.Add(movePoint(3))
	assert.Len(t, col.all(), 1)
}

func TestBatcherEmptyFlushIsNoop(t *testing.T) {
	t.Parallel()

	col := &collector{}
	b := newBatcher(10, time.Hour, col.collect)

	b.Flush()
	b.Close()

	assert.Empty(t, col.all())
}

func TestBatcherPreservesOrderAcrossFlushes(t *testing.T) {
	t.Parallel()

	col := &collector{}
	b := newBatcher(2, time.Hour, col.collect)

	for i := 0; i < 6; i++ {
		b.Add(movePoint(float64(i)))
	}

	batches := col.all()
	require.Len(t, batches, 3)

	var xs []float64
	for _, batch := range batches {
		for _, p := range batch {
			xs = append(xs, p.X)
		}
	}
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, xs)
}
