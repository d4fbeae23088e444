// ABOUTME: Version and product information for the kasumin binaries
// ABOUTME: Reported by the CLI and logged at server start
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const (
	// Product is the daemon's display name
	Product = "Kasumin"
	// Version is the release version when no module version is embedded
	Version = "0.1.0"
)

// String returns the build version with platform, preferring the module
// version stamped by go install.
func String() string {
	v := Version
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	return fmt.Sprintf("%s %s/%s", v, runtime.GOOS, runtime.GOARCH)
}
