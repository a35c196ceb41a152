package config

import "errors"

// Sentinel kinds returned by Load and Validate; match them with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid matchday config")
	// ErrLoadConfig covers unreadable dotenv and YAML files and bad env values.
	ErrLoadConfig = errors.New("load matchday config")
)
