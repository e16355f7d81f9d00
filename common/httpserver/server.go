// common/httpserver/server.go

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	commonmw "github.com/YaganovValera/storefront-auth/common/middleware"
	"github.com/YaganovValera/storefront-auth/common/prometheus"
	"github.com/YaganovValera/storefront-auth/common/shutdown"
)

// Middleware оборачивает http.Handler.
type Middleware = func(http.Handler) http.Handler

// ReadyChecker returns nil if the service is ready to serve.
type ReadyChecker func() error

// Server — HTTP-сервер с /metrics, /healthz, /readyz и прикладными маршрутами.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *logger.Logger
}

// New собирает сервер. routes монтируются по префиксам ("/" — catch-all),
// middlewares применяются ко всем маршрутам в порядке перечисления.
func New(cfg Config, check ReadyChecker, log *logger.Logger, routes map[string]http.Handler, middlewares ...Middleware) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if check == nil {
		check = func() error { return nil }
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, prometheus.Handler())
	mux.HandleFunc(cfg.HealthzPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc(cfg.ReadyzPath, func(w http.ResponseWriter, _ *http.Request) {
		if err := check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("NOT READY: %v", err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	// детерминированный порядок регистрации
	prefixes := make([]string, 0, len(routes))
	for p := range routes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		mux.Handle(p, routes[p])
	}

	handler := commonmw.Compose(middlewares...)(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log.Named("http-server"),
	}, nil
}

// Handler возвращает корневой обработчик (используется в тестах).
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run слушает cfg.Addr и выполняет graceful shutdown при ctx.Done().
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает уже открытый listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http: starting server", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("httpserver: serve: %w", err)
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.log.Info("http: shutdown signal received")
		serveErr = ctx.Err()
	case err := <-errCh:
		serveErr = err
	}

	if err := shutdown.Graceful("http-server", s.shutdownTimeout, s.httpServer.Shutdown, s.log); err != nil {
		return err
	}
	return serveErr
}
