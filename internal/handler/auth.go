package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"collab-backend/internal/auth"
)

// AuthHandler 보드 접속 토큰 발급 핸들러
type AuthHandler struct {
	jwtManager  *auth.JWTManager
	tokenExpiry int64
}

// NewAuthHandler AuthHandler 생성
func NewAuthHandler(jwtManager *auth.JWTManager, tokenExpirySeconds int64) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager, tokenExpiry: tokenExpirySeconds}
}

// JoinRequest 접속 요청
type JoinRequest struct {
	Secret string `json:"secret"`
	Name   string `json:"name"`
}

// JoinResponse 접속 토큰 응답
type JoinResponse struct {
	Token     string `json:"token"`
	ConnID    string `json:"conn_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// Join 공유 시크릿 확인 후 접속 토큰 발급
func (h *AuthHandler) Join(c *fiber.Ctx) error {
	var req JoinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.jwtManager.CheckRoomSecret(req.Secret); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid secret",
		})
	}

	connID := uuid.New().String()
	token, err := h.jwtManager.GenerateToken(connID, strings.TrimSpace(req.Name))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to issue token",
		})
	}

	return c.JSON(JoinResponse{
		Token:     token,
		ConnID:    connID,
		ExpiresIn: h.tokenExpiry,
	})
}
