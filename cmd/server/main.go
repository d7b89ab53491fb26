package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darshan601/StudyHub-Backend/internal/backplane"
	"github.com/darshan601/StudyHub-Backend/internal/config"
	"github.com/darshan601/StudyHub-Backend/internal/db"
	clog "github.com/darshan601/StudyHub-Backend/internal/log"
	"github.com/darshan601/StudyHub-Backend/internal/server"
	"github.com/darshan601/StudyHub-Backend/internal/service"
	"github.com/darshan601/StudyHub-Backend/internal/ws"

	"github.com/rs/zerolog/log"
)

func main() {
	// main 函数负责加载配置、初始化日志、连接数据库与 backplane 并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	if err := db.Seed(gdb, cfg); err != nil {
		log.Fatal().Err(err).Msg("db seed")
	}

	bp, err := backplane.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backplane", cfg.Backplane).Msg("backplane connect")
	}

	registry := ws.NewRegistry()
	userSvc := service.NewUserService(gdb, cfg)
	roomSvc := service.NewRoomService(gdb, registry)
	msgSvc := service.NewMessageService(gdb)
	hub := ws.NewHub(cfg, roomSvc, msgSvc, registry, bp)

	h := server.NewHandler(cfg, gdb, bp, userSvc, roomSvc, msgSvc)
	r := server.SetupRouter(cfg, gdb, h, hub)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Str("backplane", cfg.Backplane).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := bp.Close(); err != nil {
		log.Error().Err(err).Msg("backplane close")
	}
}
