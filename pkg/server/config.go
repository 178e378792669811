package server

import (
	"net"
	"strconv"
	"time"
)

// Config contains the chatd TCP listener settings.
type Config struct {
	// Listen is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	Listen string `json:"listen" mapstructure:"listen" yaml:"listen"`

	// Port is the TCP port to listen on
	// Default: 51488
	Port int `json:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ShutdownTimeout is the maximum time to wait for session workers
	// to drain during graceful shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Listen, strconv.Itoa(c.Port))
}
