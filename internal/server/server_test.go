// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/templates/configurator-api/internal/config"
)

type flag struct{ set bool }

func (f *flag) SetShutdown(v bool) { f.set = v }

func newServer(health Drainer) *Server {
	return New(Config{
		ServerConfig: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		HealthHandler: health,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRecoversFromPanics(t *testing.T) {
	s := newServer(nil)
	s.Router().Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShutdownMarksHealth(t *testing.T) {
	health := &flag{}
	s := newServer(health)

	err := s.Shutdown(context.Background(), 0)

	assert.NoError(t, err)
	assert.True(t, health.set)
}
