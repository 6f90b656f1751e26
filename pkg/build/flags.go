// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the binary at link time: the
// application name, build timestamp, Git commit hash and semantic version.
// Set them with linker flags, for example:
//
//	go build -ldflags "-X spectrum/pkg/build.buildVersion=0.1.0"
//
// Development builds run without them and report "unknown".
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

const defaultName = "spectrum"

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    defaultName,
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize copies the ldflags values into the build information. Every
// value that was set is applied; missing ones keep their defaults and the
// first of them is reported as an error. The error is informational: a
// development build is still a runnable binary.
func Initialize() error {
	var missing error
	set := func(dst *string, val, flag string) {
		if val == "" {
			if missing == nil {
				missing = fmt.Errorf("%s is required", flag)
			}
			return
		}
		*dst = val
	}

	set(&buildFlags.Name, buildName, "BuildName")
	set(&buildFlags.Time, buildTime, "BuildTime")
	set(&buildFlags.Commit, buildCommit, "BuildCommit")
	set(&buildFlags.Version, buildVersion, "BuildVersion")

	return missing
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
