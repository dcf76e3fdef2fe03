// Package version exposes the build version, injected at link time via
// -ldflags "-X .../internal/version.version=...".
package version

var version = "dev"

// Value returns the build version string.
func Value() string {
	return version
}
