package config

import "errors"

// ErrInvalidConfig reports a setting the service cannot run with.
// ErrLoadConfig reports a config file or environment that could not be read.
var (
	ErrInvalidConfig = errors.New("invalid inactive finder config")
	ErrLoadConfig    = errors.New("cannot load inactive finder config")
)
