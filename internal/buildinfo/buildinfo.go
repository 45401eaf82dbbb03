// Package buildinfo reports which build is running. Release builds stamp the
// variables below with -ldflags "-X"; other builds fall back to the VCS data
// the go command embeds.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Stamped by the release build.
var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

// Get merges the stamped values with the embedded VCS settings. A binary
// without either reports version "dev".
func Get() Info {
	return resolve(debug.ReadBuildInfo)
}

func resolve(read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
	if bi, ok := read(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// Release is the identifier used for error reports: version plus the short
// commit, e.g. "v1.2.0+3f2a9c1".
func (i Info) Release() string {
	if i.Commit == "" {
		return i.Version
	}
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	var b strings.Builder
	b.WriteString(i.Version)
	b.WriteByte('+')
	b.WriteString(commit)
	if i.Modified {
		b.WriteString(".dirty")
	}
	return b.String()
}
