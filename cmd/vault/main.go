package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authrepo "github.com/cipher-calc/backend/internal/auth/repository"
	"github.com/cipher-calc/backend/internal/common/clock"
	"github.com/cipher-calc/backend/internal/common/config"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
	"github.com/cipher-calc/backend/internal/common/db"
	commonhttp "github.com/cipher-calc/backend/internal/common/http"
	"github.com/cipher-calc/backend/internal/common/logger"
	srv "github.com/cipher-calc/backend/internal/common/server"
	vaulthttp "github.com/cipher-calc/backend/internal/vault/http"
	vaultrepo "github.com/cipher-calc/backend/internal/vault/repository"
	"github.com/cipher-calc/backend/internal/vault/service"
	vaultws "github.com/cipher-calc/backend/internal/vault/websocket"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "vault", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	cfg, err := config.LoadVaultConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()
	db.StartPoolMetrics(pool, 15*time.Second)

	userRepo := authrepo.NewPgUserRepository(pool)
	messageRepo := vaultrepo.NewPgMessageRepository(pool)
	vaultService := service.NewVaultService(
		userRepo,
		messageRepo,
		commoncrypto.NewUUIDGenerator(),
		clock.NewRealClock(),
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := vaultws.NewHub(log)
	go hub.Run(ctx)
	vaultService.SetNotifier(hub)

	wsConfig := vaultws.ClientConfig{
		WriteWait:   cfg.WebSocketWriteWait,
		PongWait:    cfg.WebSocketPongWait,
		PingPeriod:  cfg.WebSocketPingPeriod,
		SendBufSize: cfg.WebSocketSendBufSize,
	}

	handler := vaulthttp.NewHandler(vaultService, hub, wsConfig, cfg.AccessSecret, cfg.RequestTimeout, log)

	restMux := http.NewServeMux()
	restMux.Handle("/", handler)
	restMux.Handle("/metrics", promhttp.Handler())

	baseHandler := commonhttp.BuildBaseHandler("vault", log, restMux)

	// The feed route skips the middleware chain: the response recorder does
	// not support hijacking, and an upgraded connection outlives any
	// request-scoped accounting anyway.
	mainMux := http.NewServeMux()
	mainMux.Handle("/ws", handler)
	mainMux.Handle("/", baseHandler)

	serverConfig := srv.DefaultServerConfig(cfg.HTTPPort)
	server := srv.NewServer(serverConfig, mainMux)

	shutdownHooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("vault service: stopping feed hub")
			cancel()
			return nil
		},
	}

	srv.StartWithGracefulShutdownAndHooks(server, log, "vault", shutdownHooks)
}
