package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"cronkeeper/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type HTTPServer struct {
	server          *http.Server
	logger          logger.Logger
	shutdownTimeout time.Duration
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// NewHTTPServer creates the admin API server. It binds its port in the fx
// OnStart hook, so a port conflict fails startup instead of the process later.
func NewHTTPServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	config ServerConfig,
	log logger.Logger,
) *HTTPServer {
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpServer := &HTTPServer{
		server:          srv,
		logger:          log.With(logger.String("component", "http_server")),
		shutdownTimeout: config.ShutdownTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			httpServer.logger.Info("starting HTTP server", logger.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					httpServer.logger.Error("HTTP server stopped unexpectedly", logger.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			httpServer.logger.Info("shutting down HTTP server")
			if httpServer.shutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, httpServer.shutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})

	return httpServer
}

func (s *HTTPServer) GetServer() *http.Server {
	return s.server
}
