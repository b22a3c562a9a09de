package version

import (
	"fmt"
	"strings"
)

// Version is the service current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/hrygo/slackqa/internal/version.Version=v0.2.0"
var Version = "0.1.0"

// DevVersion is the version reported outside prod mode.
var DevVersion = Version + "-dev"

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

func GetCurrentVersion(mode string) string {
	if mode == "prod" {
		return Version
	}
	return DevVersion
}

// String returns the version string with optional short commit hash.
func String() string {
	v := Version
	if GitCommit != "" && GitCommit != "unknown" {
		shortCommit := GitCommit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		v = fmt.Sprintf("%s-%s", v, shortCommit)
	}
	return v
}

// UserAgent is sent on every outbound request.
func UserAgent() string {
	return "slackqa/" + strings.TrimPrefix(String(), "v")
}
