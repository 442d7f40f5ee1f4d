// Package config defines the hostbridge configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - load.go: layering through internal/infra/confloader
package config
