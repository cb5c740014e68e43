package board

import (
	"encoding/json"
	"log"
)

// fanoutScope 이벤트 종류별 수신자 집합
type fanoutScope int

const (
	senderOnly fanoutScope = iota
	roomAll
	roomExceptSender
)

// fanoutPolicy 이벤트 종류 → 팬아웃 범위
var fanoutPolicy = map[string]fanoutScope{
	EventInitCanvas:  senderOnly,
	EventError:       senderOnly,
	EventPresence:    roomAll,
	EventResetCanvas: roomAll,
	EventDraw:        roomExceptSender,
	EventDrawBatch:   roomExceptSender,
	EventModeChange:  roomExceptSender,
	EventPageChange:  roomExceptSender,
	EventDocUpload:   roomExceptSender,
	EventCursor:      roomExceptSender,
}

// Router 이벤트 종류별 수신자 집합을 계산해 전송
type Router struct {
	registry *Registry
}

// NewRouter Router 생성
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Route 팬아웃 정책에 따라 룸에 전송. sender는 sender-only/제외 판정에 사용
func (r *Router) Route(roomID, kind string, payload any, sender *Client) {
	scope, ok := fanoutPolicy[kind]
	if !ok {
		log.Printf("[Router] No fan-out policy for event %q, dropped", kind)
		return
	}

	if scope == senderOnly {
		if sender != nil {
			sender.Send(kind, payload)
		}
		return
	}

	data, err := json.Marshal(Message{Type: kind, Payload: payload})
	if err != nil {
		log.Printf("[Router] Failed to marshal %s message: %v", kind, err)
		return
	}

	for _, c := range r.registry.Snapshot(roomID) {
		if scope == roomExceptSender && sender != nil && c.ID == sender.ID {
			continue
		}
		c.write(data)
	}
}
