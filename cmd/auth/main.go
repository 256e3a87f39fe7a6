package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcleanup "github.com/cipher-calc/backend/internal/auth/cleanup"
	authhttp "github.com/cipher-calc/backend/internal/auth/http"
	authrepo "github.com/cipher-calc/backend/internal/auth/repository"
	"github.com/cipher-calc/backend/internal/auth/service"
	"github.com/cipher-calc/backend/internal/common/clock"
	"github.com/cipher-calc/backend/internal/common/config"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
	"github.com/cipher-calc/backend/internal/common/db"
	commonhttp "github.com/cipher-calc/backend/internal/common/http"
	"github.com/cipher-calc/backend/internal/common/logger"
	srv "github.com/cipher-calc/backend/internal/common/server"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "auth", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()
	db.StartPoolMetrics(pool, 15*time.Second)

	userRepo := authrepo.NewPgUserRepository(pool)
	ledger := authrepo.NewPgRefreshTokenLedger(pool)
	realClock := clock.NewRealClock()
	idGenerator := commoncrypto.NewUUIDGenerator()
	issuer := service.NewTokenIssuer(
		cfg.AccessSecret,
		cfg.RefreshSecret,
		idGenerator,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		realClock,
	)
	authService := service.NewAuthService(
		userRepo,
		ledger,
		issuer,
		&commoncrypto.BcryptPasswordHasher{},
		&commoncrypto.SHA256TokenHasher{},
		idGenerator,
		realClock,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go authcleanup.StartRefreshTokenCleanup(ctx, ledger, log)

	handler := authhttp.NewHandler(authService, cfg.RequestTimeout, log)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	baseHandler := commonhttp.BuildBaseHandler("auth", log, mux)

	serverConfig := srv.DefaultServerConfig(cfg.HTTPPort)
	server := srv.NewServer(serverConfig, baseHandler)

	shutdownHooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("auth service: stopping cleanup goroutine")
			cancel()
			return nil
		},
	}

	srv.StartWithGracefulShutdownAndHooks(server, log, "auth", shutdownHooks)
}
