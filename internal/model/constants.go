package model

// StrokeMode 필기 모드
type StrokeMode string

const (
	ModeDraw  StrokeMode = "draw"
	ModeErase StrokeMode = "erase"
)

// StrokePhase 획 진행 단계 (와이어 필드명은 하위 호환을 위해 "type")
type StrokePhase string

const (
	PhaseStart StrokePhase = "start"
	PhaseMove  StrokePhase = "move"
	PhaseEnd   StrokePhase = "end"
)

// CoordinateMax 캔버스 좌표 상한 (0 ~ CoordinateMax)
const CoordinateMax = 10000.0

// String 메서드
func (m StrokeMode) String() string {
	return string(m)
}

func (p StrokePhase) String() string {
	return string(p)
}
