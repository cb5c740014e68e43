package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidSecret = errors.New("invalid room secret")
)

// Claims 보드 접속 토큰 클레임
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// JWTManager 보드 접속 토큰 발급/검증 관리자
type JWTManager struct {
	secretKey   []byte
	roomSecret  string
	tokenExpiry time.Duration
}

// NewJWTManager JWTManager 생성
func NewJWTManager(secretKey, roomSecret string, tokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:   []byte(secretKey),
		roomSecret:  roomSecret,
		tokenExpiry: tokenExpiry,
	}
}

// CheckRoomSecret 공유 시크릿 확인 (상수 시간 비교)
func (m *JWTManager) CheckRoomSecret(secret string) error {
	if subtle.ConstantTimeCompare([]byte(secret), []byte(m.roomSecret)) != 1 {
		return ErrInvalidSecret
	}
	return nil
}

// GenerateToken 접속 토큰 생성. Subject에 커넥션 식별자를 담는다
func (m *JWTManager) GenerateToken(connID, name string) (string, error) {
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "collab-api",
			Subject:   connID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateToken 접속 토큰 검증
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
