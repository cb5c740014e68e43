package handler

import (
	"log"

	"github.com/gofiber/contrib/websocket"

	"collab-backend/internal/board"
)

// BoardWSHandler WebSocket 보드 핸들러. 읽기 루프만 담당하고
// 이벤트 처리는 전부 Hub에 위임한다
type BoardWSHandler struct {
	hub *board.Hub
}

// NewBoardWSHandler BoardWSHandler 생성
func NewBoardWSHandler(hub *board.Hub) *BoardWSHandler {
	return &BoardWSHandler{hub: hub}
}

// HandleWebSocket WebSocket 연결 처리
func (h *BoardWSHandler) HandleWebSocket(c *websocket.Conn) {
	// 업그레이드 미들웨어가 검증한 세션 정보 (안전한 타입 변환)
	connIDInterface := c.Locals("connId")
	nameInterface := c.Locals("name")

	connID, ok1 := connIDInterface.(string)
	name, ok2 := nameInterface.(string)

	if !ok1 || !ok2 || connID == "" {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"invalid session"}}`))
		c.Close()
		return
	}

	client := h.hub.NewClient(connID, c)
	client.Name = name

	log.Printf("[WS] Board client connected: %s", connID)

	// 연결 해제 시 정리
	defer func() {
		h.hub.Disconnect(client)
		c.Close()
		log.Printf("[WS] Board client disconnected: %s", connID)
	}()

	// 메시지 수신 루프
	for {
		msgType, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		h.hub.Dispatch(client, msgBytes)
	}
}
