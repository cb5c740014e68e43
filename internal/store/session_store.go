package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"collab-backend/internal/cache"
	"collab-backend/internal/model"
)

// ErrInvalidPage 페이지 번호가 1 미만
var ErrInvalidPage = errors.New("page must be a positive integer")

// strokeCache 획 로그 캐시가 제공해야 하는 표면 (*cache.RedisClient가 만족)
type strokeCache interface {
	GetPoints(ctx context.Context, roomID string) ([]model.StrokePoint, bool, error)
	AppendPoints(ctx context.Context, roomID string, points []model.StrokePoint) error
	ReplacePoints(ctx context.Context, roomID string, points []model.StrokePoint) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// SessionStore GORM 기반 Store 구현. Redis 캐시는 선택적(nil 허용)이며
// 캐시 실패는 로그만 남기고 무시한다.
type SessionStore struct {
	db    *gorm.DB
	cache strokeCache
}

// New SessionStore 생성
func New(db *gorm.DB, redisClient *cache.RedisClient) *SessionStore {
	s := &SessionStore{db: db}
	if redisClient != nil {
		s.cache = redisClient
	}
	return s
}

// GetOrCreate 세션 조회 또는 생성
func (s *SessionStore) GetOrCreate(ctx context.Context, roomID string) (*Snapshot, error) {
	session := model.BoardSession{RoomID: roomID, CurrentPage: 1}
	if err := s.db.WithContext(ctx).
		Where(model.BoardSession{RoomID: roomID}).
		FirstOrCreate(&session).Error; err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}

	strokes, err := s.loadStrokes(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Strokes:     strokes,
		Document:    session.Document,
		CurrentPage: session.CurrentPage,
	}, nil
}

// loadStrokes 캐시 우선 조회, 미스 시 DB에서 로드 후 캐시 재구축
func (s *SessionStore) loadStrokes(ctx context.Context, roomID string) ([]model.StrokePoint, error) {
	if s.cache != nil {
		points, hit, err := s.cache.GetPoints(ctx, roomID)
		if err == nil && hit {
			return points, nil
		}
		if err != nil {
			log.Printf("[Store] Stroke cache read failed for room %s: %v", roomID, err)
		}
	}

	var rows []model.BoardStroke
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load strokes: %w", err)
	}

	points := make([]model.StrokePoint, 0, len(rows))
	for _, row := range rows {
		var p model.StrokePoint
		if err := json.Unmarshal([]byte(row.PointData), &p); err != nil {
			log.Printf("[Store] Skipping unreadable stroke %d: %v", row.ID, err)
			continue
		}
		points = append(points, p)
	}

	// 캐시 재구축 (best-effort). 비동기로 미루면 그 사이 append된 포인트를
	// DEL+RPUSH가 지워버릴 수 있으므로 반환 전에 동기로 끝낸다.
	// 같은 룸의 append/조회는 허브의 룸 뮤텍스가 직렬화한다
	if s.cache != nil && len(points) > 0 {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.cache.ReplacePoints(cctx, roomID, points); err != nil {
			log.Printf("[Store] Stroke cache rebuild failed for room %s: %v", roomID, err)
		}
	}

	return points, nil
}

// AppendStrokes 획 추가 + updatedAt 갱신 (단일 트랜잭션)
func (s *SessionStore) AppendStrokes(ctx context.Context, roomID string, points []model.StrokePoint) error {
	if len(points) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]model.BoardStroke, 0, len(points))
	for i := range points {
		if points[i].T == 0 {
			points[i].T = now.UnixMilli()
		}
		data, err := json.Marshal(points[i])
		if err != nil {
			return fmt.Errorf("marshal stroke: %w", err)
		}
		rows = append(rows, model.BoardStroke{RoomID: roomID, PointData: string(data)})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(&model.BoardSession{}).
			Where("room_id = ?", roomID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return fmt.Errorf("append strokes: %w", err)
	}

	if s.cache != nil {
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.AppendPoints(cctx, roomID, points); err != nil {
			log.Printf("[Store] Stroke cache append failed for room %s: %v", roomID, err)
		}
	}

	return nil
}

// ResetDrawing 획 로그 전체 삭제
func (s *SessionStore) ResetDrawing(ctx context.Context, roomID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&model.BoardStroke{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.BoardSession{}).
			Where("room_id = ?", roomID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return fmt.Errorf("reset drawing: %w", err)
	}

	s.dropCache(roomID)
	return nil
}

// SetDocument 문서 교체. 새 문서는 기존 오버레이 좌표계를 무효화하므로
// 페이지 복귀와 획 삭제까지 한 트랜잭션으로 처리한다.
func (s *SessionStore) SetDocument(ctx context.Context, roomID string, data []byte) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.BoardSession{}).
			Where("room_id = ?", roomID).
			Updates(map[string]interface{}{
				"document":     data,
				"current_page": 1,
				"updated_at":   time.Now(),
			}).Error; err != nil {
			return err
		}
		return tx.Where("room_id = ?", roomID).Delete(&model.BoardStroke{}).Error
	})
	if err != nil {
		return fmt.Errorf("set document: %w", err)
	}

	s.dropCache(roomID)
	return nil
}

// SetPage 현재 페이지 변경
func (s *SessionStore) SetPage(ctx context.Context, roomID string, page int) error {
	if page < 1 {
		return ErrInvalidPage
	}

	if err := s.db.WithContext(ctx).Model(&model.BoardSession{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"current_page": page,
			"updated_at":   time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("set page: %w", err)
	}

	return nil
}

// EvictStale 보존 기간을 지난 세션 일괄 삭제
func (s *SessionStore) EvictStale(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	var roomIDs []string
	if err := s.db.WithContext(ctx).Model(&model.BoardSession{}).
		Where("updated_at < ?", cutoff).
		Pluck("room_id", &roomIDs).Error; err != nil {
		return 0, fmt.Errorf("evict stale: %w", err)
	}
	if len(roomIDs) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id IN ?", roomIDs).Delete(&model.BoardStroke{}).Error; err != nil {
			return err
		}
		return tx.Where("room_id IN ?", roomIDs).Delete(&model.BoardSession{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("evict stale: %w", err)
	}

	for _, roomID := range roomIDs {
		s.dropCache(roomID)
	}

	log.Printf("[Store] Evicted %d stale sessions (cutoff %s)", len(roomIDs), cutoff.Format(time.RFC3339))
	return int64(len(roomIDs)), nil
}

// dropCache 캐시 무효화 (best-effort)
func (s *SessionStore) dropCache(roomID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.DeleteRoom(ctx, roomID); err != nil {
		log.Printf("[Store] Stroke cache invalidation failed for room %s: %v", roomID, err)
	}
}
