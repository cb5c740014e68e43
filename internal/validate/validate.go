// Package validate 인바운드 이벤트의 형태/범위 검증 (순수 함수, 부수효과 없음)
package validate

import (
	"math"
	"strings"

	"collab-backend/internal/model"
)

// MaxRoomIDLength 룸 식별자 최대 길이
const MaxRoomIDLength = 64

// Stroke 획 포인트 검증: 좌표 범위, 모드, 단계
func Stroke(p model.StrokePoint) bool {
	if !inBounds(p.X) || !inBounds(p.Y) {
		return false
	}

	switch p.Mode {
	case model.ModeDraw, model.ModeErase:
	default:
		return false
	}

	switch p.Phase {
	case model.PhaseStart, model.PhaseMove, model.PhaseEnd:
	default:
		return false
	}

	return true
}

// Cursor 커서 좌표 검증
func Cursor(x, y float64) bool {
	return inBounds(x) && inBounds(y)
}

// RoomID 룸 식별자 정규화 및 검증 (trim 후 비어있으면 거부)
func RoomID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxRoomIDLength {
		return "", false
	}
	return id, true
}

// Color 6자리 16진수 색상 코드 검증 (#RRGGBB)
func Color(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for i := 1; i < 7; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Page 페이지 번호 검증 (1 이상)
func Page(n int) bool {
	return n >= 1
}

// inBounds 좌표가 유한수이며 [0, CoordinateMax] 범위인지 확인
func inBounds(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= 0 && v <= model.CoordinateMax
}
