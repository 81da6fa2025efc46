package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/irodav/gatehouse/internal/auth"
	"github.com/irodav/gatehouse/internal/config"
	"github.com/irodav/gatehouse/internal/database"
	"github.com/irodav/gatehouse/internal/handler"
	"github.com/irodav/gatehouse/internal/mail"
	"github.com/irodav/gatehouse/internal/queue"
	"github.com/irodav/gatehouse/internal/repository"
	"github.com/irodav/gatehouse/internal/router"
	"github.com/irodav/gatehouse/internal/token"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, user cache disabled")
	}
	cache := repository.NewUserCache(rdb, 5*time.Minute)
	users := repository.NewUserRepo(db)

	codec := token.NewCodec(cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute)
	svc := &auth.Service{
		Users:      users,
		Cache:      cache,
		Mail:       mail.NewAMQPSender(cfg.AMQPURL),
		Codec:      codec,
		BcryptCost: cfg.BcryptCost,
		ResetTTL:   time.Duration(cfg.ResetTTLMin) * time.Minute,
		BaseURL:    cfg.PublicBaseURL,
	}

	// Drain the outbound email queue in the background.
	go queue.StartEmailConsumer(cfg.AMQPURL)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(svc, cfg),
		handler.NewAdminHandler(users),
		codec,
		repository.NewCachedUsers(users, cache))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
