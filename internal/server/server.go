package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/auth"
	"github.com/dylantneal/eng.com-sub003/internal/cache"
	"github.com/dylantneal/eng.com-sub003/internal/config"
	"github.com/dylantneal/eng.com-sub003/internal/feed"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg       *config.Config
	paginator *feed.Paginator
	cache     cache.Cache
	auth      *auth.Manager
	log       *logrus.Logger
	handler   http.Handler
}

func New(cfg *config.Config, paginator *feed.Paginator, c cache.Cache, authManager *auth.Manager, log *logrus.Logger) *Server {
	if c == nil {
		c = cache.Noop{}
	}
	s := &Server{
		cfg:       cfg,
		paginator: paginator,
		cache:     c,
		auth:      authManager,
		log:       log,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	if s.cfg.Server.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(s.log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/feed", auth.Middleware(s.auth), s.feed)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "baggage", "traceparent"},
		AllowCredentials: true,
	})

	return otelhttp.NewHandler(c.Handler(router), "feed-http", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))
}

// Run слушает порт из конфигурации до отмены ctx, затем корректно завершается
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.cfg.Server.Port).Info("Запуск HTTP сервера")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Остановка HTTP сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
