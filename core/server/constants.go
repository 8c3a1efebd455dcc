package server

import "time"

const (
	// DefaultAddr is the loopback listener used for downstream subscribers.
	DefaultAddr = "127.0.0.1:3030"

	// DefaultReadTimeout bounds reading the upgrade request.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout bounds plain HTTP responses. Upgraded connections clear it.
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the default timeout for idle keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultMaxHeaderBytes is the default maximum size of request headers.
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB
)
