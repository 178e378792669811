package client

import (
	"net"
	"strconv"
	"time"
)

// Config contains the chat client connection settings.
type Config struct {
	// Server is the chatd host to connect to (IPv4 address or hostname)
	// Default: 127.0.0.1
	Server string `json:"server" mapstructure:"server" validate:"required" yaml:"server"`

	// Port is the chatd TCP port
	// Default: 51488
	Port int `json:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// Name is the display name announced on connect.
	// When empty the client prompts for one interactively.
	Name string `json:"name" mapstructure:"name" yaml:"name,omitempty"`

	// DialTimeout bounds the TCP connect attempt
	// Default: 10s
	DialTimeout time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// Addr returns the server address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}
