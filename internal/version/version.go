// Package version reports build information for the fastrewrite and
// fastgraph commands.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is overridden at link time with -ldflags "-X ...Version=vX.Y.Z".
var Version = "dev"

// Revision returns the VCS commit embedded by the Go toolchain, or ""
// if unavailable (e.g. a build outside a module/VCS checkout).
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// String renders a one-line "name version (revision), go1.x linux/amd64"
// summary for --version flags.
func String(name string) string {
	rev := Revision()
	if rev == "" {
		rev = "unknown"
	}
	goVersion := runtime.Version()
	return fmt.Sprintf("%s %s (%s), %s %s/%s", name, Version, rev, goVersion, runtime.GOOS, runtime.GOARCH)
}

// BuildSettings returns the Go toolchain's recorded build settings
// (vcs.modified, -trimpath, CGO_ENABLED, and so on) for --build-options
// style diagnostics.
func BuildSettings() map[string]string {
	out := map[string]string{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	out["go"] = strings.TrimPrefix(info.GoVersion, "go")
	for _, s := range info.Settings {
		if s.Value == "" {
			continue
		}
		out[s.Key] = s.Value
	}
	return out
}
