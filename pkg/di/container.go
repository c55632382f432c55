// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/ssargent/bl4serial/pkg/api" //nolint:depguard
	"github.com/ssargent/bl4serial/pkg/serial"
)

// Container holds all the dependencies for the application
type Container struct {
	log           *slog.Logger
	codec         *serial.Codec
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container. A nil logger
// discards output.
func NewContainer(log *slog.Logger) *Container {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Container{
		log:           log,
		codec:         serial.NewCodec(serial.CodecConfig{Logger: log.With("component", "codec")}),
		serverFactory: api.NewServerFactory(),
	}
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.log
}

// GetCodec returns the shared serial codec
func (c *Container) GetCodec() *serial.Codec {
	return c.codec
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
