package board

import (
	"sync"
)

// Registry 룸 → 커넥션 → 참가자 인메모리 매핑.
// 영속화되지 않으며 라이브 커넥션만으로 재구성된다.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

// NewRegistry Registry 생성
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]*Client),
	}
}

// Join 참가자 등록
func (r *Registry) Join(roomID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[roomID] = room
	}
	room[c.ID] = c
}

// Leave 참가자 제거. 룸이 비면 엔트리 자체를 삭제하고 남은 인원 수 반환
func (r *Registry) Leave(roomID, connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0
	}

	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
		return 0
	}
	return len(room)
}

// Snapshot 브로드캐스트용 참가자 목록 복사본
func (r *Registry) Snapshot(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomID]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	return clients
}

// Presence 참가자 요약 매핑 (connID → 이름/색상)
func (r *Registry) Presence(roomID string) map[string]PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomID]
	entries := make(map[string]PresenceEntry, len(room))
	for id, c := range room {
		entries[id] = PresenceEntry{Name: c.Name, Color: c.Color}
	}
	return entries
}

// UpdateCursor 참가자의 마지막 커서 위치 갱신. 등록된 참가자가 아니면 false
func (r *Registry) UpdateCursor(roomID, connID string, x, y float64) bool {
	r.mu.RLock()
	c, ok := r.rooms[roomID][connID]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	c.setCursor(x, y)
	return true
}

// Counts 활성 룸 수와 전체 참가자 수 (상태 표면용)
func (r *Registry) Counts() (rooms int, participants int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms = len(r.rooms)
	for _, room := range r.rooms {
		participants += len(room)
	}
	return rooms, participants
}
