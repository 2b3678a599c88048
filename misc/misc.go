// Package misc provides build identification helpers shared by all commands.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "idg"

// GetAppName returns short program name used for logs, temporary files and reports.
func GetAppName() string {
	return appName
}

var buildOnce = sync.OnceValues(func() (string, string) {
	version, hash := "devel", "unknown"
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return version, hash
	}
	if len(bi.Main.Version) != 0 && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 8 {
			hash = s.Value[:8]
		}
	}
	return version, hash
})

// GetVersion returns module version recorded in build information.
func GetVersion() string {
	v, _ := buildOnce()
	return v
}

// GetGitHash returns short VCS revision recorded in build information.
func GetGitHash() string {
	_, h := buildOnce()
	return h
}
