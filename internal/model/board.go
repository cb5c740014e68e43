package model

import (
	"time"
)

// StrokePoint 획을 구성하는 단일 포인트 (와이어 포맷 그대로)
type StrokePoint struct {
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Mode  StrokeMode  `json:"mode"`
	Phase StrokePhase `json:"type"`
	Color string      `json:"color,omitempty"`
	T     int64       `json:"t,omitempty"` // 서버 기준 타임스탬프 (ms)
}

// BoardSession 룸 단위 영속 세션 (문서 + 현재 페이지)
type BoardSession struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID      string    `gorm:"uniqueIndex;size:64;not null" json:"room_id"`
	Document    []byte    `gorm:"type:bytea" json:"-"`
	CurrentPage int       `gorm:"not null;default:1" json:"current_page"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (BoardSession) TableName() string {
	return "board_sessions"
}

// BoardStroke 획 포인트 로그 (append-only)
type BoardStroke struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    string    `gorm:"index;size:64;not null" json:"room_id"`
	PointData string    `gorm:"type:jsonb;not null" json:"point_data"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (BoardStroke) TableName() string {
	return "board_strokes"
}
