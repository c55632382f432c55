package di

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bl4serial/pkg/api"
)

type stubStarter struct {
	config api.ServerConfig
}

func (s *stubStarter) StartServer(_ context.Context, _ api.ItemCodec, config api.ServerConfig, _ *slog.Logger) error {
	s.config = config
	return nil
}

type stubFactory struct {
	starter *stubStarter
}

func (f *stubFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestNewContainer(t *testing.T) {
	c := NewContainer(nil)

	require.NotNil(t, c.Logger())
	require.NotNil(t, c.GetCodec())
	assert.IsType(t, &api.DefaultServerFactory{}, c.GetServerFactory())

	item := c.GetCodec().Decode("@Ugr$Q9m/$Qa!a%H`NgZl^aX^(?UrYc")
	assert.Equal(t, "r", item.ItemType)
}

func TestContainer_SetServerFactory(t *testing.T) {
	c := NewContainer(slog.New(slog.DiscardHandler))
	starter := &stubStarter{}
	c.SetServerFactory(&stubFactory{starter: starter})

	err := c.GetServerFactory().CreateServerStarter().StartServer(context.Background(), c.GetCodec(), api.ServerConfig{Port: 9999}, c.Logger())
	require.NoError(t, err)
	assert.Equal(t, 9999, starter.config.Port)
}
