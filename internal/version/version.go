// Package version reports the agentstatus build version.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the release version, set at build time with
// -ldflags "-X github.com/groblegark/agentstatus/internal/version.Version=...".
var Version = "dev"

// Commit is the git commit the binary was built from, set at build time.
var Commit = ""

// ShortCommit returns the first 12 characters of hash.
func ShortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// resolveCommitHash prefers Commit and falls back to the VCS revision
// embedded by the go toolchain.
func resolveCommitHash() string {
	if Commit != "" {
		return Commit
	}
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

// String returns "agentstatus <version> (<commit>)".
func String() string {
	commit := ShortCommit(resolveCommitHash())
	if commit == "" {
		return "agentstatus " + Version
	}
	return fmt.Sprintf("agentstatus %s (%s)", Version, commit)
}
