package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/taskmanager/auth-service/internal/config"
	"github.com/taskmanager/auth-service/internal/events"
	"github.com/taskmanager/auth-service/internal/hash"
	"github.com/taskmanager/auth-service/internal/httpserver"
	"github.com/taskmanager/auth-service/internal/logging"
	"github.com/taskmanager/auth-service/internal/middleware"
	"github.com/taskmanager/auth-service/internal/models"
	"github.com/taskmanager/auth-service/internal/repo"
	"github.com/taskmanager/auth-service/internal/service"
	"github.com/taskmanager/auth-service/internal/tokens"
	"github.com/taskmanager/auth-service/pkg/db"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel, "auth-service")
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gormDB, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := gormDB.AutoMigrate(&models.User{}, &models.Role{}, &models.RefreshToken{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	store := &repo.GormRepo{DB: gormDB}
	if err := store.EnsureRoles(context.Background(), service.DefaultRole, "ROLE_ADMIN"); err != nil {
		log.Fatalf("role seed error: %v", err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
	}

	signer := tokens.NewSigner(cfg.JWTSecret)

	svc := &service.AuthService{
		Repo:             store,
		Hasher:           hash.NewBcrypt(0),
		Signer:           signer,
		AccessTTL:        cfg.AccessTokenTTL,
		RefreshTTL:       cfg.RefreshTokenTTL,
		LockoutThreshold: cfg.LockoutThreshold,
	}
	if producer != nil {
		svc.Events = producer
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), echomw.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		AccessAuth:  middleware.NewAccessAuth(signer),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
