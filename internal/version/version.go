// Package version reports build information of the cae binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X .../internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// Get collects build information, falling back to the module build info
// embedded by the Go toolchain when the ldflags were not set.
func Get() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		info.BuildTime = t
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "unknown" {
					info.GitCommit = setting.Value
				}
			case "vcs.modified":
				info.Dirty = setting.Value == "true"
			}
		}
	}
	return info
}

// Short returns "version (commit)" with a seven character commit.
func (i *Info) Short() string {
	if i.GitCommit == "unknown" || len(i.GitCommit) < 7 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit[:7])
}

// String returns one "Key: value" line per known field.
func (i *Info) String() string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "unknown" {
		commit := i.GitCommit
		if i.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "Commit: "+commit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)
	return strings.Join(lines, "\n")
}
