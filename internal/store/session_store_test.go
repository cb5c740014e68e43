package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"collab-backend/internal/model"
)

// newTestDB 테스트별 인메모리 DB (이름을 분리해 테스트 간 공유 방지)
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.BoardSession{}, &model.BoardStroke{}))
	return db
}

// fakeCache strokeCache 인메모리 구현
type fakeCache struct {
	mu       sync.Mutex
	points   map[string][]model.StrokePoint
	rebuilds int
}

func newFakeCache() *fakeCache {
	return &fakeCache{points: make(map[string][]model.StrokePoint)}
}

func (f *fakeCache) GetPoints(_ context.Context, roomID string) ([]model.StrokePoint, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	points, ok := f.points[roomID]
	if !ok {
		return nil, false, nil
	}
	out := make([]model.StrokePoint, len(points))
	copy(out, points)
	return out, true, nil
}

func (f *fakeCache) AppendPoints(_ context.Context, roomID string, points []model.StrokePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.points[roomID] = append(f.points[roomID], points...)
	return nil
}

func (f *fakeCache) ReplacePoints(_ context.Context, roomID string, points []model.StrokePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.StrokePoint, len(points))
	copy(out, points)
	f.points[roomID] = out
	f.rebuilds++
	return nil
}

func (f *fakeCache) DeleteRoom(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.points, roomID)
	return nil
}

func point(x float64, phase model.StrokePhase) model.StrokePoint {
	return model.StrokePoint{X: x, Y: x, Mode: model.ModeDraw, Phase: phase}
}

func TestSessionRoundTrip(t *testing.T) {
	s := New(newTestDB(t), nil)
	ctx := context.Background()

	// 첫 조회는 빈 세션을 생성한다
	snap, err := s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, snap.Strokes)
	assert.Empty(t, snap.Document)
	assert.Equal(t, 1, snap.CurrentPage)

	require.NoError(t, s.AppendStrokes(ctx, "r1", []model.StrokePoint{
		point(1, model.PhaseStart),
		point(2, model.PhaseEnd),
	}))
	require.NoError(t, s.AppendStrokes(ctx, "r1", []model.StrokePoint{
		point(3, model.PhaseStart),
	}))
	require.NoError(t, s.SetPage(ctx, "r1", 5))

	// 삽입 순서대로 재생된다
	snap, err = s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, snap.Strokes, 3)
	assert.Equal(t, 1.0, snap.Strokes[0].X)
	assert.Equal(t, 3.0, snap.Strokes[2].X)
	assert.NotZero(t, snap.Strokes[0].T)
	assert.Equal(t, 5, snap.CurrentPage)

	// 문서 교체는 페이지 복귀와 획 삭제를 동반한다
	doc := []byte("%PDF-1.4")
	require.NoError(t, s.SetDocument(ctx, "r1", doc))

	snap, err = s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, doc, snap.Document)
	assert.Equal(t, 1, snap.CurrentPage)
	assert.Empty(t, snap.Strokes)

	// 리셋은 획만 지우고 문서는 유지한다
	require.NoError(t, s.AppendStrokes(ctx, "r1", []model.StrokePoint{point(4, model.PhaseStart)}))
	require.NoError(t, s.ResetDrawing(ctx, "r1"))

	snap, err = s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, snap.Strokes)
	assert.Equal(t, doc, snap.Document)
}

func TestSetPageRejectsInvalid(t *testing.T) {
	s := New(newTestDB(t), nil)
	ctx := context.Background()

	_, err := s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetPage(ctx, "r1", 0), ErrInvalidPage)
	assert.ErrorIs(t, s.SetPage(ctx, "r1", -3), ErrInvalidPage)
}

func TestEvictStaleRetentionBoundary(t *testing.T) {
	db := newTestDB(t)
	s := New(db, nil)
	ctx := context.Background()

	for _, room := range []string{"old", "fresh"} {
		_, err := s.GetOrCreate(ctx, room)
		require.NoError(t, err)
		require.NoError(t, s.AppendStrokes(ctx, room, []model.StrokePoint{point(1, model.PhaseStart)}))
	}

	// 보존 기간(7일) 기준으로 한쪽만 경계를 넘긴다
	touch := func(room string, age time.Duration) {
		require.NoError(t, db.Model(&model.BoardSession{}).
			Where("room_id = ?", room).
			UpdateColumn("updated_at", time.Now().Add(-age)).Error)
	}
	touch("old", 8*24*time.Hour)
	touch("fresh", 6*24*time.Hour)

	evicted, err := s.EvictStale(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)

	// 만료 세션은 획 로그까지 함께 사라진다
	var sessions, strokes int64
	require.NoError(t, db.Model(&model.BoardSession{}).Where("room_id = ?", "old").Count(&sessions).Error)
	require.NoError(t, db.Model(&model.BoardStroke{}).Where("room_id = ?", "old").Count(&strokes).Error)
	assert.Zero(t, sessions)
	assert.Zero(t, strokes)

	snap, err := s.GetOrCreate(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, snap.Strokes, 1)

	// 대상이 없으면 0
	evicted, err = s.EvictStale(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, evicted)
}

func TestCacheReadThroughAndInvalidation(t *testing.T) {
	fc := newFakeCache()
	s := New(newTestDB(t), nil)
	s.cache = fc
	ctx := context.Background()

	require.NoError(t, s.AppendStrokes(ctx, "r1", []model.StrokePoint{
		point(1, model.PhaseStart),
		point(2, model.PhaseEnd),
	}))

	snap, err := s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, snap.Strokes, 2)

	// 리셋/문서 교체는 캐시를 무효화한다
	require.NoError(t, s.ResetDrawing(ctx, "r1"))
	_, hit, err := fc.GetPoints(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheRebuildCompletesBeforeSnapshotReturns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// DB에만 획이 있는 상태 (캐시 콜드 스타트)
	seed := New(db, nil)
	require.NoError(t, seed.AppendStrokes(ctx, "r1", []model.StrokePoint{
		point(1, model.PhaseStart),
		point(2, model.PhaseEnd),
	}))

	fc := newFakeCache()
	s := New(db, nil)
	s.cache = fc

	snap, err := s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, snap.Strokes, 2)

	// 재구축은 반환 시점에 이미 끝나 있어야 한다
	cached, hit, err := fc.GetPoints(ctx, "r1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, cached, 2)
	assert.Equal(t, 1, fc.rebuilds)

	// 재구축 이후의 append가 캐시에서 지워지지 않는다
	require.NoError(t, s.AppendStrokes(ctx, "r1", []model.StrokePoint{point(3, model.PhaseStart)}))

	snap, err = s.GetOrCreate(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, snap.Strokes, 3)
	assert.Equal(t, 3.0, snap.Strokes[2].X)
	assert.Equal(t, 1, fc.rebuilds)
}
