// Package config loads environment variables into typed structs, caching one value
// per struct type.
//
// A .env file in the working directory is loaded on first use (existing variables
// win), then caarlos0/env parses the struct tags.
//
//	type RelayConfig struct {
//		Path       string `env:"RELAY_PATH" envDefault:"/relay"`
//		BufferSize int    `env:"RELAY_BUFFER_SIZE" envDefault:"999"`
//	}
//
//	var cfg RelayConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	// Or panic at startup
//	config.MustLoad(&cfg)
//
// # Caching Behavior
//
// Each type is parsed once per process; later Load calls for the same type return
// the cached value even if the environment changed. Tests that change variables call
// Reset first.
package config
