package config

import "errors"

// Validation errors returned when a configuration group is incomplete or
// invalid. They are wrapped with a description of the offending field.
var (
	// ErrInvalidAppConfigs indicates invalid token or envelope settings
	// (for example, an empty JWT secret).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidServerConfigs indicates invalid listener, timeout or rate
	// limit settings.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidAdapterConfigs indicates invalid client transport settings
	// (for example, a server URL without scheme).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid storage settings.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, zero sync interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
)
