package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/lkarlslund/usageguard/pkg/version.Version=vX.Y.Z"
// and likewise for Commit, Date and Dirty.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
	Dirty   = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"go_version"`
}

func Current() Info {
	info := Info{
		Version:   strings.TrimSpace(Version),
		Commit:    strings.TrimSpace(Commit),
		Date:      strings.TrimSpace(Date),
		Dirty:     strings.EqualFold(strings.TrimSpace(Dirty), "true"),
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fill(bi)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// fill takes whatever ldflags left empty from the embedded build info.
func (i *Info) fill(bi *debug.BuildInfo) {
	if (i.Version == "" || i.Version == "dev") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		v := strings.TrimSpace(s.Value)
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = v
			}
		case "vcs.time":
			if i.Date == "" {
				i.Date = v
			}
		case "vcs.modified":
			i.Dirty = i.Dirty || strings.EqualFold(v, "true")
		}
	}
}

func (i Info) Short() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		short := i.Commit
		if len(short) > 12 {
			short = short[:12]
		}
		parts = append(parts, short)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "+")
}

func String() string {
	return Current().Short()
}

func Detailed(component string) string {
	v := Current()
	if strings.TrimSpace(component) == "" {
		component = "usageguard"
	}
	out := fmt.Sprintf("%s %s (%s)", component, v.Short(), v.GoVersion)
	if v.Date != "" {
		out += "\nBuilt: " + v.Date
	}
	return out
}
