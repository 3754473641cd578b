// Package version holds the application version.
package version

// Version is overridden at build time via -ldflags "-X podcastgo/pkg/version.Version=...".
var Version = "v0.3.0"
