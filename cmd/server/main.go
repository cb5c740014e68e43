package main

import (
	"context"
	"log"
	"time"

	"collab-backend/internal/board"
	"collab-backend/internal/cache"
	"collab-backend/internal/config"
	"collab-backend/internal/database"
	"collab-backend/internal/server"
	"collab-backend/internal/store"
)

func main() {
	// 설정 로드
	cfg := config.Load()

	// 데이터베이스 연결
	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	// Ping 테스트
	if err := database.Ping(); err != nil {
		log.Fatalf("❌ Database ping failed: %v", err)
	}
	log.Printf("✅ Database connected successfully")

	// Redis 연결 (선택적 - 실패 시 캐시 없이 동작)
	var redisClient *cache.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("⚠️ Redis connection failed: %v (stroke cache disabled)", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	} else {
		log.Println("ℹ️ Redis not configured (stroke cache disabled)")
	}

	// 세션 저장소와 허브 구성
	sessionStore := store.New(db, redisClient)
	hub := board.NewHub(cfg, sessionStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 레이트 윈도우 정리 루프
	hub.RunLimiterSweeper(ctx)

	// 만료 세션 정리 루프
	go runSessionEviction(ctx, sessionStore, cfg)

	// 서버 생성 및 설정
	srv := server.New(cfg, db, redisClient, hub)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// runSessionEviction 보존 기간이 지난 보드 세션을 주기적으로 정리한다
func runSessionEviction(ctx context.Context, sessionStore store.Store, cfg *config.Config) {
	ticker := time.NewTicker(cfg.Board.EvictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evictCtx, cancel := context.WithTimeout(ctx, time.Minute)
			evicted, err := sessionStore.EvictStale(evictCtx, cfg.Board.RetentionWindow)
			cancel()

			if err != nil {
				log.Printf("[Store] Session eviction failed: %v", err)
				continue
			}
			if evicted > 0 {
				log.Printf("[Store] Evicted %d stale board sessions", evicted)
			}
		}
	}
}
