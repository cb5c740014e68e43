package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 애플리케이션 전체 설정
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Board     BoardConfig
}

// ServerConfig HTTP 서버 설정
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// WebSocketConfig WebSocket 관련 설정
type WebSocketConfig struct {
	ReadBufferSize   int
	WriteBufferSize  int
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// CORSConfig CORS 설정
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// AuthConfig 인증 설정 (공유 시크릿 게이트)
type AuthConfig struct {
	RoomSecret   string
	JWTSecret    string
	TokenExpiry  time.Duration
	SecureCookie bool
}

// RedisConfig Redis 설정
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BoardConfig 실시간 보드 동작 설정
type BoardConfig struct {
	BatchSize         int           // 이 개수에 도달하면 즉시 flush
	BatchFlushDelay   time.Duration // 유휴 flush 타이머 (~60Hz)
	StrokeRateLimit   int           // 윈도우당 단일 이벤트 허용량
	BatchRateLimit    int           // 윈도우당 배치 허용량
	RateWindow        time.Duration
	RateSweepInterval time.Duration
	CursorMinInterval time.Duration // 커서 전파 최소 간격
	MaxDocumentSize   int           // 문서 업로드 상한 (bytes)
	RetentionWindow   time.Duration // 세션 보존 기간
	EvictInterval     time.Duration // 만료 세션 정리 주기
}

// Load 환경 변수에서 설정 로드
func Load() *Config {
	// .env 파일 로드 (없어도 에러 무시)
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	// 필수 환경 변수 검증
	jwtSecret := getRequiredEnv("JWT_SECRET")
	if jwtSecret == "change-this-secret-in-production" {
		log.Fatal("🚨 CRITICAL: JWT_SECRET must be changed from default value in production!")
	}
	roomSecret := getRequiredEnv("ROOM_SECRET")

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:   getInt("WS_READ_BUFFER_SIZE", 16*1024),
			WriteBufferSize:  getInt("WS_WRITE_BUFFER_SIZE", 16*1024),
			HandshakeTimeout: getDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
			WriteTimeout:     getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept"),
		},
		Auth: AuthConfig{
			RoomSecret:   roomSecret,
			JWTSecret:    jwtSecret,
			TokenExpiry:  getDuration("TOKEN_EXPIRY", 12*time.Hour),
			SecureCookie: getBool("SECURE_COOKIE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Board: BoardConfig{
			BatchSize:         getInt("BOARD_BATCH_SIZE", 10),
			BatchFlushDelay:   getDuration("BOARD_BATCH_FLUSH_DELAY", 16*time.Millisecond),
			StrokeRateLimit:   getInt("BOARD_STROKE_RATE_LIMIT", 100),
			BatchRateLimit:    getInt("BOARD_BATCH_RATE_LIMIT", 200),
			RateWindow:        getDuration("BOARD_RATE_WINDOW", time.Second),
			RateSweepInterval: getDuration("BOARD_RATE_SWEEP_INTERVAL", 30*time.Second),
			CursorMinInterval: getDuration("BOARD_CURSOR_MIN_INTERVAL", 16*time.Millisecond),
			MaxDocumentSize:   getInt("BOARD_MAX_DOCUMENT_SIZE", 50*1024*1024),
			RetentionWindow:   getDuration("BOARD_RETENTION_WINDOW", 7*24*time.Hour),
			EvictInterval:     getDuration("BOARD_EVICT_INTERVAL", 24*time.Hour),
		},
	}
}

// getRequiredEnv 필수 환경 변수 조회 (없으면 Fatal)
func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("🚨 CRITICAL: Required environment variable %s is not set!", key)
	}
	return value
}

// getEnv 환경 변수 조회 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt 정수형 환경 변수 조회
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getBool 불리언 환경 변수 조회
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration 시간 환경 변수 조회
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// 숫자만 있으면 초로 간주
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
