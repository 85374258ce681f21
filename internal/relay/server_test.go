package relay

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServer_StartStop(t *testing.T) {
	srv, err := NewServer(Config{Addr: "127.0.0.1:0"}, WithExchanger(&stubExchanger{}))
	require.NoError(t, err)
	require.NotZero(t, srv.Port())

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", srv.Port()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, <-errc)
}

func TestNewServer_BadAddr(t *testing.T) {
	_, err := NewServer(Config{Addr: "256.0.0.1:bad"})
	require.Error(t, err)
}
