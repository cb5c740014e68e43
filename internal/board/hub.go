package board

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"collab-backend/internal/config"
	"collab-backend/internal/model"
	"collab-backend/internal/ratelimit"
	"collab-backend/internal/store"
	"collab-backend/internal/validate"
)

// 에러 이벤트 메시지
const (
	errInvalidRoom   = "invalid room id"
	errNotInRoom     = "not in a room"
	errDocumentSize  = "document too large"
	errOperationFail = "operation failed"
)

// opTimeout 저장소 호출 상한
const opTimeout = 5 * time.Second

// maxInboundBatch 단일 draw-batch가 담을 수 있는 포인트 상한.
// 배치 하나로 포인트 단위 유입 제어를 우회하지 못하게 한다
const maxInboundBatch = 256

// handlerFunc 이벤트 핸들러 시그니처
type handlerFunc func(c *Client, payload json.RawMessage)

// Hub 룸 상태와 이벤트 디스패치를 총괄한다.
// 등록/조회는 Registry, 팬아웃은 Router, 영속화는 Store에 위임하고
// 같은 룸의 입장(스냅샷 읽기+등록), 획 커밋(append+전파), 복합 전이
// (리셋/페이지/문서)는 룸별 뮤텍스 하나로 직렬화한다. 룸이 다르면
// 경합하지 않는다.
type Hub struct {
	cfg      *config.Config
	store    store.Store
	registry *Registry
	router   *Router

	strokeLimiter *ratelimit.Limiter
	batchLimiter  *ratelimit.Limiter

	handlers map[string]handlerFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHub Hub 생성
func NewHub(cfg *config.Config, sessionStore store.Store) *Hub {
	h := &Hub{
		cfg:           cfg,
		store:         sessionStore,
		registry:      NewRegistry(),
		strokeLimiter: ratelimit.New(cfg.Board.StrokeRateLimit, cfg.Board.RateWindow),
		batchLimiter:  ratelimit.New(cfg.Board.BatchRateLimit, cfg.Board.RateWindow),
		locks:         make(map[string]*sync.Mutex),
	}
	h.router = NewRouter(h.registry)

	// 이벤트 종류 → 핸들러 룩업 테이블
	h.handlers = map[string]handlerFunc{
		EventJoin:        h.handleJoin,
		EventDraw:        h.handleDraw,
		EventDrawBatch:   h.handleDrawBatch,
		EventResetCanvas: h.handleReset,
		EventModeChange:  h.handleModeChange,
		EventPageChange:  h.handlePageChange,
		EventDocUpload:   h.handleDocUpload,
		EventCursor:      h.handleCursor,
	}

	return h
}

// NewClient 커넥션에 대응하는 Client 생성 및 배치 버퍼 연결
func (h *Hub) NewClient(id string, conn Conn) *Client {
	c := NewClient(id, conn)
	c.batch = newBatcher(h.cfg.Board.BatchSize, h.cfg.Board.BatchFlushDelay, func(points []model.StrokePoint) {
		h.commitBatch(c, points)
	})
	return c
}

// Dispatch 인바운드 프레임 1건 처리. 형식 오류는 조용히 드롭
func (h *Hub) Dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	fn, ok := h.handlers[env.Type]
	if !ok {
		return
	}
	fn(c, env.Payload)
}

// Disconnect 커넥션 해제 시 결정적 정리:
// 잔여 배치 flush → 레이트 윈도우 해제 → 레지스트리 제거 → 퇴장 전파
func (h *Hub) Disconnect(c *Client) {
	c.batch.Close()

	h.strokeLimiter.Remove(c.ID)
	h.batchLimiter.Remove(c.ID)

	roomID := c.Room()
	if roomID == "" {
		return
	}
	c.setRoom("")

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	remaining := h.registry.Leave(roomID, c.ID)
	if remaining > 0 {
		h.router.Route(roomID, EventPresence, PresencePayload{Participants: h.registry.Presence(roomID)}, nil)
	}

	log.Printf("[Hub] Client %s left room %s (%d remaining)", c.ID, roomID, remaining)
}

// Stats 활성 룸/참가자 수 (상태 표면용)
func (h *Hub) Stats() (rooms int, participants int) {
	return h.registry.Counts()
}

// RunLimiterSweeper 레이트 윈도우 정리 루프
func (h *Hub) RunLimiterSweeper(ctx context.Context) {
	go h.strokeLimiter.RunSweeper(ctx, h.cfg.Board.RateSweepInterval)
	go h.batchLimiter.RunSweeper(ctx, h.cfg.Board.RateSweepInterval)
}

// =============================================================================
// 이벤트 핸들러
// =============================================================================

// handleJoin Unjoined → Joined 전이
func (h *Hub) handleJoin(c *Client, payload json.RawMessage) {
	var req JoinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError(errInvalidRoom)
		return
	}

	roomID, ok := validate.RoomID(req.Room)
	if !ok {
		c.SendError(errInvalidRoom)
		return
	}

	// 이전 룸에서 먼저 퇴장 (남은 인원에게 presence 전파)
	if prev := c.Room(); prev != "" {
		h.leaveRoom(c, prev)
	}

	// 페이로드에 이름이 없으면 접속 토큰의 이름을 유지
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = c.Name
	}
	c.Name = resolveName(name, c.ID)
	c.Color = req.Color
	if !validate.Color(c.Color) {
		c.Color = randomColor()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// 스냅샷 읽기와 등록 사이에 커밋된 획이 끼어들지 못하도록
	// 룸 뮤텍스를 쥔 채로 스냅샷을 읽는다 (커밋 경로와 동일한 뮤텍스)
	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	snapshot, err := h.store.GetOrCreate(ctx, roomID)
	if err != nil {
		log.Printf("[Hub] Session load failed for room %s: %v", roomID, err)
		c.SendError(errOperationFail)
		return
	}

	h.registry.Join(roomID, c)
	c.setRoom(roomID)

	strokes := snapshot.Strokes
	if strokes == nil {
		strokes = []model.StrokePoint{}
	}
	snap := SnapshotPayload{
		Strokes:      strokes,
		CurrentPage:  snapshot.CurrentPage,
		ID:           c.ID,
		Name:         c.Name,
		Color:        c.Color,
		Participants: h.registry.Presence(roomID),
	}
	if len(snapshot.Document) > 0 {
		snap.Document = base64.StdEncoding.EncodeToString(snapshot.Document)
	}

	h.router.Route(roomID, EventInitCanvas, snap, c)
	h.router.Route(roomID, EventPresence, PresencePayload{Participants: h.registry.Presence(roomID)}, nil)

	log.Printf("[Hub] Client %s joined room %s as %q", c.ID, roomID, c.Name)
}

// handleDraw 단일 획 포인트
func (h *Hub) handleDraw(c *Client, payload json.RawMessage) {
	if c.Room() == "" {
		c.SendError(errNotInRoom)
		return
	}

	var p model.StrokePoint
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if !h.admitPoint(c, p) {
		return
	}
	if !h.strokeLimiter.Allow(c.ID) {
		return // 무통보 드롭
	}

	c.batch.Add(p)
}

// handleDrawBatch 클라이언트측에서 이미 묶인 배치
func (h *Hub) handleDrawBatch(c *Client, payload json.RawMessage) {
	if c.Room() == "" {
		c.SendError(errNotInRoom)
		return
	}

	var req BatchPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	if len(req.Points) == 0 || len(req.Points) > maxInboundBatch {
		return
	}
	if !h.batchLimiter.Allow(c.ID) {
		return
	}

	// 유효하지 않은 포인트만 걸러내고 순서는 유지
	for _, p := range req.Points {
		if h.admitPoint(c, p) {
			c.batch.Add(p)
		}
	}
}

// admitPoint 포인트 검증 + 획 단계 시퀀스 확인 (start로 시작해야 한다)
func (h *Hub) admitPoint(c *Client, p model.StrokePoint) bool {
	if !validate.Stroke(p) {
		return false
	}

	switch p.Phase {
	case model.PhaseStart:
		c.setInStroke(true)
	case model.PhaseMove:
		if !c.inStroke() {
			return false
		}
	case model.PhaseEnd:
		if !c.inStroke() {
			return false
		}
		c.setInStroke(false)
	}
	return true
}

// commitBatch 배치 커밋: 영속화 성공 시에만 전파 (persist-then-broadcast).
// 입장 중인 커넥션이 스냅샷에도 전파에도 없는 획을 보지 못하도록
// 룸 뮤텍스 아래에서 append와 전파를 함께 수행한다
func (h *Hub) commitBatch(c *Client, points []model.StrokePoint) {
	roomID := c.Room()
	if roomID == "" {
		return
	}

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := h.store.AppendStrokes(ctx, roomID, points); err != nil {
		log.Printf("[Hub] Stroke append failed for room %s: %v", roomID, err)
		c.SendError(errOperationFail)
		return
	}

	if len(points) == 1 {
		h.router.Route(roomID, EventDraw, points[0], c)
		return
	}
	h.router.Route(roomID, EventDrawBatch, BatchPayload{Points: points}, c)
}

// handleReset 획 로그 초기화, 룸 전체(송신자 포함)에 전파
func (h *Hub) handleReset(c *Client, _ json.RawMessage) {
	roomID := c.Room()
	if roomID == "" {
		c.SendError(errNotInRoom)
		return
	}

	c.batch.Flush()

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := h.store.ResetDrawing(ctx, roomID); err != nil {
		log.Printf("[Hub] Reset failed for room %s: %v", roomID, err)
		c.SendError(errOperationFail)
		return
	}

	h.router.Route(roomID, EventResetCanvas, nil, c)
}

// handleModeChange 필기 모드 전환 (영속화 없음)
func (h *Hub) handleModeChange(c *Client, payload json.RawMessage) {
	roomID := c.Room()
	if roomID == "" {
		c.SendError(errNotInRoom)
		return
	}

	var req ModePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	switch req.Mode {
	case model.ModeDraw, model.ModeErase:
	default:
		return
	}

	h.router.Route(roomID, EventModeChange, req, c)
}

// handlePageChange 현재 페이지 변경
func (h *Hub) handlePageChange(c *Client, payload json.RawMessage) {
	roomID := c.Room()
	if roomID == "" {
		c.SendError(errNotInRoom)
		return
	}

	var req PagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	if !validate.Page(req.Page) {
		return
	}

	c.batch.Flush()

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := h.store.SetPage(ctx, roomID, req.Page); err != nil {
		log.Printf("[Hub] Page change failed for room %s: %v", roomID, err)
		c.SendError(errOperationFail)
		return
	}

	h.router.Route(roomID, EventPageChange, req, c)
}

// handleDocUpload 문서 교체: 업로드 전파 후 룸 전체 리셋 신호
func (h *Hub) handleDocUpload(c *Client, payload json.RawMessage) {
	roomID := c.Room()
	if roomID == "" {
		c.SendError(errNotInRoom)
		return
	}

	var req UploadPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	if req.Data == "" {
		return
	}

	// 디코딩 전에 인코딩 길이로 상한 선검사
	if len(req.Data) > base64.StdEncoding.EncodedLen(h.cfg.Board.MaxDocumentSize) {
		c.SendError(errDocumentSize)
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return
	}
	if len(data) > h.cfg.Board.MaxDocumentSize {
		c.SendError(errDocumentSize)
		return
	}

	c.batch.Flush()

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := h.store.SetDocument(ctx, roomID, data); err != nil {
		log.Printf("[Hub] Document upload failed for room %s: %v", roomID, err)
		c.SendError(errOperationFail)
		return
	}

	h.router.Route(roomID, EventDocUpload, UploadPayload{Data: req.Data}, c)
	h.router.Route(roomID, EventResetCanvas, nil, nil)

	log.Printf("[Hub] Room %s document replaced (%d bytes)", roomID, len(data))
}

// handleCursor 커서 이동: 스로틀 초과 샘플은 드롭 (백로그 없음)
func (h *Hub) handleCursor(c *Client, payload json.RawMessage) {
	roomID := c.Room()
	if roomID == "" {
		c.SendError(errNotInRoom)
		return
	}

	var req CursorPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	if !validate.Cursor(req.X, req.Y) {
		return
	}
	if !c.allowCursor(h.cfg.Board.CursorMinInterval) {
		return
	}

	h.registry.UpdateCursor(roomID, c.ID, req.X, req.Y)
	h.router.Route(roomID, EventCursor, CursorBroadcast{
		ID:    c.ID,
		X:     req.X,
		Y:     req.Y,
		Name:  c.Name,
		Color: c.Color,
	}, c)
}

// =============================================================================
// 내부 헬퍼
// =============================================================================

// leaveRoom 재입장 시 기존 룸 정리
func (h *Hub) leaveRoom(c *Client, roomID string) {
	c.batch.Flush()
	c.setRoom("")

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	remaining := h.registry.Leave(roomID, c.ID)
	if remaining > 0 {
		h.router.Route(roomID, EventPresence, PresencePayload{Participants: h.registry.Presence(roomID)}, nil)
	}
}

// roomLock 룸 뮤텍스 조회 또는 생성. 엔트리는 프로세스 수명 동안 유지된다:
// 삭제하면 이미 참조를 쥔 고루틴과 되살아난 룸이 서로 다른 뮤텍스로
// 직렬화될 수 있다 (룸 ID당 뮤텍스 하나라 비용은 미미)
func (h *Hub) roomLock(roomID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[roomID] = lock
	}
	return lock
}

// resolveName 표시 이름 결정 (미지정 시 커넥션 ID 기반)
func resolveName(name, connID string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		suffix := connID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		return "guest-" + suffix
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}

// randomColor 무작위 #RRGGBB 색상
func randomColor() string {
	return fmt.Sprintf("#%06X", rand.Intn(0x1000000))
}
