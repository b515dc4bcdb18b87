// Package version exposes the build version.
package version

// version is overridden at build time via -ldflags.
var version = "0.3.0-dev"

// Get returns the current version string.
func Get() string {
	return version
}
