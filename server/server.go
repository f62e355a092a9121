package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techagentng/notify/config"
	"github.com/techagentng/notify/realtime"
	"github.com/techagentng/notify/services"
	"go.uber.org/zap"
)

type Server struct {
	Config              *config.Config
	Logger              *zap.Logger
	NotificationService services.NotificationService
	ReadStateService    services.ReadStateService
	FeedService         services.FeedService
	SweeperService      services.SweeperService
	Hub                 *realtime.Hub
}

// Start runs the HTTP server, the websocket hub bridge and the in-process
// sweep loop until SIGINT/SIGTERM, then drains for up to 10 seconds.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Hub.Run(ctx)
	go s.SweeperService.Run(ctx)

	port := s.Config.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.setupRouter(),
	}

	go func() {
		s.Logger.Info("server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error("forced shutdown", zap.Error(err))
	}
}
