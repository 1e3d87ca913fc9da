package config

import "runtime/debug"

// Set with -ldflags, for example:
//
//	go build -ldflags "-X labmaint/internal/config.version=1.4.0" ./cmd/api
var (
	version   = "dev"
	commit    = ""
	buildTime = ""
)

// NewBuildInfo returns the linker-injected build metadata. Commit and build
// time fall back to the VCS stamp the go tool embeds in module builds.
func NewBuildInfo() BuildInfo {
	info := BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = shortRevision(s.Value)
			case s.Key == "vcs.time" && info.BuildTime == "":
				info.BuildTime = s.Value
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
