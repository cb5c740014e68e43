// Package store 룸 단위 영속 세션 상태 (획 로그, 문서, 페이지)
package store

import (
	"context"
	"time"

	"collab-backend/internal/model"
)

// Snapshot 신규 참가자에게 재생되는 세션 전체 상태
type Snapshot struct {
	Strokes     []model.StrokePoint
	Document    []byte
	CurrentPage int
}

// Store 세션 저장소 계약. 실패는 재시도 가능한 에러로 반환되며
// 호출자는 자동 재시도 없이 일반 실패 이벤트를 전송한다.
type Store interface {
	// GetOrCreate 세션 조회 또는 생성 (빈 로그, 문서 없음, 1페이지)
	GetOrCreate(ctx context.Context, roomID string) (*Snapshot, error)

	// AppendStrokes 획 로그에 원자적으로 추가하고 updatedAt 갱신
	AppendStrokes(ctx context.Context, roomID string, points []model.StrokePoint) error

	// ResetDrawing 획 로그 전체 삭제
	ResetDrawing(ctx context.Context, roomID string) error

	// SetDocument 문서 교체 + 1페이지 복귀 + 획 로그 삭제 (단일 트랜잭션)
	SetDocument(ctx context.Context, roomID string, data []byte) error

	// SetPage 현재 페이지 변경
	SetPage(ctx context.Context, roomID string, page int) error

	// EvictStale 보존 기간을 지난 세션 삭제, 삭제된 세션 수 반환
	EvictStale(ctx context.Context, retention time.Duration) (int64, error)
}
