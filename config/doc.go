// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// The package covers the server surface, store housekeeping windows, the
// optional shared NATS backend, declared upstream subscriptions and
// push-mode consumers.
package config
