package board

import (
	"encoding/json"

	"collab-backend/internal/model"
)

// 이벤트 종류 (와이어 프로토콜)
const (
	EventJoin        = "join"
	EventDraw        = "draw"
	EventDrawBatch   = "draw-batch"
	EventInitCanvas  = "init-canvas"
	EventResetCanvas = "reset-canvas"
	EventModeChange  = "mode-change"
	EventPageChange  = "page-change"
	EventDocUpload   = "pdf-upload"
	EventCursor      = "cursor"
	EventPresence    = "presence"
	EventError       = "error"
)

// Envelope 인바운드 WebSocket 메시지
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message 아웃바운드 WebSocket 메시지
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// JoinPayload 입장 요청
type JoinPayload struct {
	Room  string `json:"room"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// BatchPayload 획 포인트 배치
type BatchPayload struct {
	Points []model.StrokePoint `json:"points"`
}

// ModePayload 필기 모드 변경
type ModePayload struct {
	Mode model.StrokeMode `json:"mode"`
}

// PagePayload 페이지 변경
type PagePayload struct {
	Page int `json:"page"`
}

// UploadPayload 문서 업로드 (base64 인코딩)
type UploadPayload struct {
	Data string `json:"data"`
}

// CursorPayload 커서 이동 요청
type CursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CursorBroadcast 커서 위치 전파
type CursorBroadcast struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
}

// PresenceEntry 참가자 요약
type PresenceEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PresencePayload 룸 참가자 전체 목록
type PresencePayload struct {
	Participants map[string]PresenceEntry `json:"participants"`
}

// SnapshotPayload 신규 입장자에게 전송되는 전체 상태
type SnapshotPayload struct {
	Strokes      []model.StrokePoint      `json:"strokes"`
	Document     string                   `json:"document,omitempty"` // base64
	CurrentPage  int                      `json:"currentPage"`
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Color        string                   `json:"color"`
	Participants map[string]PresenceEntry `json:"participants"`
}

// ErrorPayload 송신자에게만 전달되는 에러
type ErrorPayload struct {
	Message string `json:"message"`
}
