package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bl4serial/pkg/serial"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewServer_Defaults(t *testing.T) {
	server := NewServer(serial.NewCodec(serial.CodecConfig{}), ServerConfig{APIKey: "secret-key"}, nil, nil)

	assert.Equal(t, "secret-key", server.config.APIKey)
	assert.Equal(t, 1, server.config.MaxBatch)
	assert.Equal(t, 1, server.config.BatchWorkers)
	assert.NotNil(t, server.log)
}

func TestStartServer(t *testing.T) {
	config := ServerConfig{
		Bind:         "127.0.0.1",
		Port:         freePort(t),
		APIKey:       testAPIKey,
		MaxBatch:     10,
		BatchWorkers: 2,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	starter := NewServerFactory().CreateServerStarter()
	go func() {
		done <- starter.StartServer(ctx, serial.NewCodec(serial.CodecConfig{}), config, nil)
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", config.Port)
	require.Eventually(t, func() bool {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		req.Header.Set(apiKeyHeader, testAPIKey)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK && resp.Header.Get(requestIDHeader) != ""
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}

func TestStartServer_AddressInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	config := ServerConfig{Bind: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port, APIKey: testAPIKey}
	err = StartServer(context.Background(), serial.NewCodec(serial.CodecConfig{}), config, nil)
	assert.ErrorContains(t, err, "api server")
}
