// Package version reports build information. The variables are set with
// -ldflags "-X github.com/chatlens/chatlens/pkg/version.commitFromGit=...".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	commitFromGit string
	buildDate     string
)

type Info struct {
	GitCommit string `json:"gitCommit" yaml:"gitCommit"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Compiler  string `json:"compiler" yaml:"compiler"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get falls back to the VCS revision recorded by the Go toolchain when the
// binary was built without ldflags.
func Get() Info {
	commit := commitFromGit
	if commit == "" {
		commit = "unknown"
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
				}
			}
		}
	}
	return Info{
		GitCommit: commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
