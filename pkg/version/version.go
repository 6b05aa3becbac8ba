// Package version exposes the binary's build metadata.
package version

import (
	"fmt"
	"runtime"
)

// Set through -ldflags at build time. A source build keeps the defaults.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo bundles link-time metadata with runtime details.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata for the running binary.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the one-line form printed by `aar version`.
func (b BuildInfo) String() string {
	return fmt.Sprintf("aar %s (commit %s, built %s, %s, %s)",
		b.Version, b.GitCommit, b.BuildTime, b.GoVersion, b.Platform)
}

// String reports the current build in one line.
func String() string {
	return Get().String()
}
