package relay

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds relay tunables loaded from the environment.
type Config struct {
	UpstreamHost string        `env:"RELAY_UPSTREAM_HOST" envDefault:"localhost"`
	UpstreamPath string        `env:"RELAY_UPSTREAM_PATH" envDefault:"/Messages"`
	DialTimeout  time.Duration `env:"RELAY_DIAL_TIMEOUT" envDefault:"10s"`

	Path           string `env:"RELAY_PATH" envDefault:"/relay"`
	BufferSize     int    `env:"RELAY_BUFFER_SIZE" envDefault:"999"`
	OverflowPolicy string `env:"RELAY_OVERFLOW_POLICY" envDefault:"drop_oldest"`

	WriteTimeout   time.Duration `env:"RELAY_WRITE_TIMEOUT" envDefault:"10s"`
	PingInterval   time.Duration `env:"RELAY_PING_INTERVAL" envDefault:"30s"`
	AllowAnyOrigin bool          `env:"RELAY_ALLOW_ANY_ORIGIN" envDefault:"true"`

	HandshakeTimeout time.Duration `env:"RELAY_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	ReadBufferSize   int           `env:"RELAY_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize  int           `env:"RELAY_WRITE_BUFFER_SIZE" envDefault:"1024"`

	MirrorChannel string `env:"RELAY_MIRROR_CHANNEL" envDefault:"wsrelay:messages"`
}

// UpstreamURL builds ws://host:port/path.
func UpstreamURL(host string, port int, path string) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   path,
	}
	return u.String()
}
