package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound   = goerr.New("configuration file not found")
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrDuplicateName    = goerr.New("duplicate resource name")
	ErrMissingEndpoint  = goerr.New("resource endpoint is required")
	ErrInvalidFieldKind = goerr.New("invalid field kind")
	ErrMissingName      = goerr.New("name is required")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	ResourceKey   = "resource"
	FieldPathKey  = "field_path"
	FieldIndexKey = "field_index"
)
