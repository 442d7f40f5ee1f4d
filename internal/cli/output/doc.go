// Package output renders hostbridge CLI results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned columns for terminals
//   - json.go, yaml.go: machine-readable output for scripting
package output
