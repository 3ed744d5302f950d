// Package config loads and validates the application configuration.
//
// Configuration is layered: compiled defaults, then an optional config.yaml,
// then BETASCALE_* environment variables, each layer overriding the one
// below. Paths resolve against the executable directory so deployments work
// the same whether launched from a shell or a service manager.
package config
