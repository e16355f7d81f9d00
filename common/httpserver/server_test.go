// common/httpserver/server_test.go
package httpserver_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/storefront-auth/common/httpserver"
	"github.com/YaganovValera/storefront-auth/common/logger"
)

func TestConfig_DefaultsAndValidate(t *testing.T) {
	var cfg httpserver.Config
	cfg.ApplyDefaults()
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.NoError(t, cfg.Validate())

	cfg.CORS = httpserver.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}
	require.Error(t, cfg.Validate())
}

func TestNew_ServiceEndpoints(t *testing.T) {
	ready := errors.New("redis down")
	routes := map[string]http.Handler{
		"/": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}
	srv, err := httpserver.New(httpserver.Config{Addr: ":0"}, func() error { return ready }, logger.NewNop(), routes)
	require.NoError(t, err)

	cases := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/anything", http.StatusTeapot},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.path, nil))
			assert.Equal(t, c.want, rec.Code)
		})
	}
}

func TestRecoverMiddleware(t *testing.T) {
	routes := map[string]http.Handler{
		"/": http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
	}
	srv, err := httpserver.New(httpserver.Config{}, nil, logger.NewNop(), routes,
		httpserver.RecoverMiddleware(logger.NewNop()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSMiddleware_Credentials(t *testing.T) {
	h := httpserver.CORSMiddleware(httpserver.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowCredentials: true,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv, err := httpserver.New(httpserver.Config{ShutdownTimeout: time.Second}, nil, logger.NewNop(), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
