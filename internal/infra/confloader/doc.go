// Package confloader loads hostbridge configuration.
//
// Sources are layered with koanf, later ones overriding earlier ones:
//
//  1. Defaults (the target struct as passed in)
//  2. YAML configuration file
//  3. Environment variables (HOSTBRIDGE_ prefix)
//  4. Command-line flags, through LoadMap
//
// Environment names map to keys by dropping the prefix, lowercasing and
// turning a double underscore into a dot, so HOSTBRIDGE_TRUST__ENV_VAR
// sets trust.env_var.
package confloader
