package config

import "errors"

var (
	ErrNilConfig     = errors.New("config target is nil")
	ErrParsingConfig = errors.New("failed to parse config from environment")
)
