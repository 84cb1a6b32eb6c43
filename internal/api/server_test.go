package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/redev/backend/pkg/config"
	"github.com/wonny/redev/backend/pkg/logger"
)

func serverConfig(port string) *config.Config {
	return &config.Config{
		Port: port,
		Env:  "development",
		API: config.APIConfig{
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: time.Second,
		},
	}
}

func TestNew_TimeoutsFromConfig(t *testing.T) {
	s := New(serverConfig("8081"), logger.Nop(), http.NotFoundHandler())

	assert.Equal(t, ":8081", s.httpServer.Addr)
	assert.Equal(t, 5*time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 90*time.Second, s.httpServer.WriteTimeout)
	assert.Equal(t, 30*time.Second, s.httpServer.IdleTimeout)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := New(serverConfig("0"), logger.Nop(), http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestServer_RunReturnsListenError(t *testing.T) {
	s := New(serverConfig("-1"), logger.Nop(), http.NotFoundHandler())

	err := s.Run(context.Background())
	assert.Error(t, err)
}
