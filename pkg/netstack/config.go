package netstack

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default network configuration values.
const (
	DefaultInterfaceIP      = "10.0.2.15"
	DefaultGateway          = "10.0.2.2"
	DefaultPortSeed         = 1234
	DefaultHandshakeTimeout = 2 * time.Second
)

// Config is the network subsystem configuration: the address and
// gateway assigned to enabled hardware interfaces, the seed of the
// ephemeral port counter, queue sizing, and the TCP handshake bound.
type Config struct {
	InterfaceIP      net.IP
	Gateway          net.IP
	PortSeed         uint32
	QueueCapacity    int
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		InterfaceIP:      net.ParseIP(DefaultInterfaceIP).To4(),
		Gateway:          net.ParseIP(DefaultGateway).To4(),
		PortSeed:         DefaultPortSeed,
		QueueCapacity:    QueueCapacity,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// LoadConfig reads the network configuration from the given file, with
// environment overrides (HELIOS_NET_IP, HELIOS_NET_GATEWAY, ...) and
// built-in defaults. An empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("net.ip", DefaultInterfaceIP)
	v.SetDefault("net.gateway", DefaultGateway)
	v.SetDefault("net.port_seed", DefaultPortSeed)
	v.SetDefault("net.queue_capacity", QueueCapacity)
	v.SetDefault("net.handshake_timeout", DefaultHandshakeTimeout.String())

	v.SetEnvPrefix("helios")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("netstack: read config: %w", err)
		}
	}

	ip := net.ParseIP(v.GetString("net.ip"))
	if ip = ip.To4(); ip == nil {
		return nil, fmt.Errorf("netstack: invalid interface ip %q", v.GetString("net.ip"))
	}
	gw := net.ParseIP(v.GetString("net.gateway"))
	if gw = gw.To4(); gw == nil {
		return nil, fmt.Errorf("netstack: invalid gateway %q", v.GetString("net.gateway"))
	}

	to, err := time.ParseDuration(v.GetString("net.handshake_timeout"))
	if err != nil {
		return nil, fmt.Errorf("netstack: invalid handshake timeout: %w", err)
	}

	return &Config{
		InterfaceIP:      ip,
		Gateway:          gw,
		PortSeed:         v.GetUint32("net.port_seed"),
		QueueCapacity:    v.GetInt("net.queue_capacity"),
		HandshakeTimeout: to,
	}, nil
}
