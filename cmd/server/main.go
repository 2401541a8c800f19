package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/wgdash/wg-dashboard/internal/config"
	"github.com/wgdash/wg-dashboard/internal/db"
	"github.com/wgdash/wg-dashboard/internal/events"
	"github.com/wgdash/wg-dashboard/internal/httpserver"
	"github.com/wgdash/wg-dashboard/internal/logging"
	mw "github.com/wgdash/wg-dashboard/internal/middleware"
	"github.com/wgdash/wg-dashboard/internal/repo"
	"github.com/wgdash/wg-dashboard/internal/service"
	"github.com/wgdash/wg-dashboard/internal/tokens"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(mw.RequestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		cancel()
		log.Fatalf("db migrate error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	gormRepo := repo.New(gdb)
	issuer := &tokens.Issuer{Secret: cfg.JWTSecret, AccessTTL: cfg.AccessTTL}

	authSvc := &service.AuthService{
		Repo:       gormRepo,
		Issuer:     issuer,
		RefreshTTL: cfg.RefreshTTL,
		Events:     producer,
	}
	userSvc := &service.UserService{Repo: gormRepo, Events: producer}
	peerSvc := &service.PeerService{
		Repo:             gormRepo,
		Quota:            cfg.PeerQuota,
		AdminQuotaExempt: cfg.AdminQuotaExempt,
		Events:           producer,
	}

	bootCtx := logging.IntoContext(initCtx, logger)
	if err := authSvc.EnsureAdmin(bootCtx, cfg.InitialAdminCreate,
		cfg.InitialAdminUsername, cfg.InitialAdminPassword, cfg.InitialAdminName); err != nil {
		cancel()
		log.Fatalf("admin bootstrap error: %v", err)
	}
	cancel()

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc},
		UserHandler: &httpserver.UserHTTP{Svc: userSvc},
		PeerHandler: &httpserver.PeerHTTP{Svc: peerSvc},
		Issuer:      issuer,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
