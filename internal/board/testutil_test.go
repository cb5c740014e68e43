package board

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collab-backend/internal/config"
	"collab-backend/internal/model"
	"collab-backend/internal/store"
)

// fakeConn 전송 계층 대역: 수신 프레임을 기록만 한다
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames = append(f.frames, buf)
	return nil
}

// wireMsg 수신 프레임 디코딩용
type wireMsg struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (f *fakeConn) messages(t *testing.T) []wireMsg {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := make([]wireMsg, 0, len(f.frames))
	for _, frame := range f.frames {
		var m wireMsg
		require.NoError(t, json.Unmarshal(frame, &m))
		msgs = append(msgs, m)
	}
	return msgs
}

func (f *fakeConn) byType(t *testing.T, kind string) []wireMsg {
	t.Helper()

	var out []wireMsg
	for _, m := range f.messages(t) {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}

// fakeSession fakeStore의 룸 상태
type fakeSession struct {
	points   []model.StrokePoint
	document []byte
	page     int
	updated  time.Time
}

// fakeStore store.Store 인메모리 구현 + 에러 주입.
// onLoad는 스냅샷을 읽은 뒤 반환 직전에 호출된다 (경합 시나리오용,
// 동시 사용 전에 설정할 것)
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession

	appendErr error
	resetErr  error
	docErr    error
	pageErr   error
	onLoad    func(roomID string)
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*fakeSession)}
}

func (s *fakeStore) session(roomID string) *fakeSession {
	sess, ok := s.sessions[roomID]
	if !ok {
		sess = &fakeSession{page: 1, updated: time.Now()}
		s.sessions[roomID] = sess
	}
	return sess
}

func (s *fakeStore) GetOrCreate(_ context.Context, roomID string) (*store.Snapshot, error) {
	s.mu.Lock()
	sess := s.session(roomID)
	points := make([]model.StrokePoint, len(sess.points))
	copy(points, sess.points)
	snap := &store.Snapshot{
		Strokes:     points,
		Document:    sess.document,
		CurrentPage: sess.page,
	}
	s.mu.Unlock()

	if s.onLoad != nil {
		s.onLoad(roomID)
	}
	return snap, nil
}

func (s *fakeStore) AppendStrokes(_ context.Context, roomID string, points []model.StrokePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return s.appendErr
	}
	sess := s.session(roomID)
	sess.points = append(sess.points, points...)
	sess.updated = time.Now()
	return nil
}

func (s *fakeStore) ResetDrawing(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resetErr != nil {
		return s.resetErr
	}
	sess := s.session(roomID)
	sess.points = nil
	sess.updated = time.Now()
	return nil
}

func (s *fakeStore) SetDocument(_ context.Context, roomID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docErr != nil {
		return s.docErr
	}
	sess := s.session(roomID)
	sess.document = data
	sess.page = 1
	sess.points = nil
	sess.updated = time.Now()
	return nil
}

func (s *fakeStore) SetPage(_ context.Context, roomID string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pageErr != nil {
		return s.pageErr
	}
	sess := s.session(roomID)
	sess.page = page
	sess.updated = time.Now()
	return nil
}

func (s *fakeStore) EvictStale(_ context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	var evicted int64
	for roomID, sess := range s.sessions {
		if sess.updated.Before(cutoff) {
			delete(s.sessions, roomID)
			evicted++
		}
	}
	return evicted, nil
}

func (s *fakeStore) snapshotOf(roomID string) fakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(roomID)
	points := make([]model.StrokePoint, len(sess.points))
	copy(points, sess.points)
	return fakeSession{points: points, document: sess.document, page: sess.page}
}

// testConfig 테스트용 설정: flush 지연을 짧게 잡아 비동기 경로를 빠르게 통과
func testConfig() *config.Config {
	return &config.Config{
		Board: config.BoardConfig{
			BatchSize:         10,
			BatchFlushDelay:   5 * time.Millisecond,
			StrokeRateLimit:   100,
			BatchRateLimit:    200,
			RateWindow:        time.Second,
			RateSweepInterval: time.Minute,
			CursorMinInterval: time.Millisecond,
			MaxDocumentSize:   1024,
			RetentionWindow:   7 * 24 * time.Hour,
			EvictInterval:     24 * time.Hour,
		},
	}
}

// joinRoom 헬퍼: 클라이언트 생성 + 입장까지 수행
func joinRoom(t *testing.T, h *Hub, id, room string) (*Client, *fakeConn) {
	t.Helper()

	conn := &fakeConn{}
	c := h.NewClient(id, conn)
	h.Dispatch(c, rawEvent(t, EventJoin, JoinPayload{Room: room}))

	require.Equal(t, room, c.Room())
	require.Len(t, conn.byType(t, EventInitCanvas), 1)
	return c, conn
}

// rawEvent 헬퍼: 이벤트 프레임 직렬화
func rawEvent(t *testing.T, kind string, payload any) []byte {
	t.Helper()

	data, err := json.Marshal(Message{Type: kind, Payload: payload})
	require.NoError(t, err)
	return data
}
