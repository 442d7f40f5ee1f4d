// Package command defines the hostbridge CLI using urfave/cli/v2:
//
//   - root.go: App, global flags, shared Env
//   - init.go: one-time bootstrap of a host process
//   - trust.go: trust bundle build and verification
//   - asset.go: fetching asset: URLs
//   - prefs.go: the badger-backed preference store
//   - bundle.go: resource bundle lookups
//   - serve.go: long-running mode with the trust watcher and /metrics
//   - version.go: build information
//
// Every command runs against the configuration loaded in the app's
// Before hook and prints through internal/cli/output.
package command
