package board

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Conn 전송 계층이 제공해야 하는 최소 표면 (*websocket.Conn이 만족)
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Client 라이브 커넥션 하나에 대응하는 참가자
type Client struct {
	ID    string
	Name  string
	Color string

	conn    Conn
	writeMu sync.Mutex

	// joined 상태, 획 진행 여부, 마지막 커서 위치, 커서 전파 시각
	mu         sync.Mutex
	roomID     string
	drawing    bool
	cursorX    float64
	cursorY    float64
	lastCursor time.Time

	batch *batcher
}

// NewClient Client 생성 (Unjoined 상태)
func NewClient(id string, conn Conn) *Client {
	return &Client{ID: id, conn: conn}
}

// Room 현재 입장한 룸 ID ("" = Unjoined)
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) setRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// setInStroke 획 진행 상태 기록 (start ~ end 사이)
func (c *Client) setInStroke(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drawing = v
}

// inStroke 현재 획이 진행 중인지
func (c *Client) inStroke() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

// setCursor 마지막 커서 위치 갱신 (last write wins)
func (c *Client) setCursor(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursorX, c.cursorY = x, y
}

// Cursor 마지막 커서 위치 조회
func (c *Client) Cursor() (x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursorX, c.cursorY
}

// allowCursor 커서 전파 스로틀: 최소 간격 이내의 샘플은 드롭
func (c *Client) allowCursor(minInterval time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastCursor) < minInterval {
		return false
	}
	c.lastCursor = now
	return true
}

// Send 단일 클라이언트에게 메시지 전송
func (c *Client) Send(msgType string, payload any) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("[Board] Failed to marshal %s message: %v", msgType, err)
		return
	}
	c.write(data)
}

// SendError 에러 이벤트 전송 (송신자 한정)
func (c *Client) SendError(message string) {
	c.Send(EventError, ErrorPayload{Message: message})
}

// write 직렬화된 프레임 전송. 커넥션당 단일 writer 보장
func (c *Client) write(data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[Board] Failed to send to client %s: %v", c.ID, err)
	}
}
