package version

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestGet_BuildTime(t *testing.T) {
	old := BuildTime
	defer func() { BuildTime = old }()

	BuildTime = "2026-01-02T03:04:05Z"
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Get().BuildTime)

	BuildTime = "unknown"
	assert.True(t, Get().BuildTime.IsZero())
}

func TestInfoFormatting(t *testing.T) {
	info := &Info{Version: "v1.2.0", GitCommit: "abcdef123456", GoVersion: "go1.24.4", Platform: "linux/amd64", Dirty: true}
	assert.Equal(t, "v1.2.0 (abcdef1)", info.Short())
	assert.Equal(t, "Version: v1.2.0\nCommit: abcdef123456 (dirty)\nGo: go1.24.4\nPlatform: linux/amd64", info.String())

	unknown := &Info{Version: "dev", GitCommit: "unknown", GoVersion: "go", Platform: "p"}
	assert.Equal(t, "dev", unknown.Short())
	assert.Equal(t, "Version: dev\nGo: go\nPlatform: p", unknown.String())
}
