// Package version carries the build identity stamped into the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set through -ldflags at release time. A binary installed with go install
// has no ldflags; resolve backfills these from the embedded build info.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var resolveOnce sync.Once

func resolve() {
	if Version != "dev" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = s.Value
			if len(Commit) > 7 {
				Commit = Commit[:7]
			}
		case "vcs.time":
			Date = s.Value
		}
	}
}

// Info returns the one-line banner printed by the version command.
func Info() string {
	resolveOnce.Do(resolve)
	return fmt.Sprintf("rowguard %s (commit %s, built %s, %s)",
		Version, Commit, Date, runtime.Version())
}

// Short returns the bare version string.
func Short() string {
	resolveOnce.Do(resolve)
	return Version
}
