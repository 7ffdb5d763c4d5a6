package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfoShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{name: "plain", info: Info{Version: "v1.2.0"}, want: "v1.2.0"},
		{name: "commit truncated", info: Info{Version: "dev", Commit: "0123456789abcdef"}, want: "dev+0123456789ab"},
		{name: "dirty", info: Info{Version: "v1.2.0", Commit: "abc", Dirty: true}, want: "v1.2.0+abc+dirty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Short(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFillKeepsLdflagsValues(t *testing.T) {
	info := Info{Version: "v0.3.0", Commit: "fromflags"}
	info.fill(&debug.BuildInfo{
		Main: debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "fromvcs"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	if info.Version != "v0.3.0" || info.Commit != "fromflags" {
		t.Fatalf("ldflags values were overwritten: %+v", info)
	}
	if info.Date != "2026-01-02T03:04:05Z" || !info.Dirty {
		t.Fatalf("expected vcs fallback for empty fields: %+v", info)
	}
}

func TestFillUsesModuleVersionForDev(t *testing.T) {
	info := Info{Version: "dev"}
	info.fill(&debug.BuildInfo{Main: debug.Module{Version: "v1.4.1"}})
	if info.Version != "v1.4.1" {
		t.Fatalf("expected module version, got %q", info.Version)
	}
	info = Info{Version: "dev"}
	info.fill(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if info.Version != "dev" {
		t.Fatalf("expected dev to survive (devel), got %q", info.Version)
	}
}

func TestDetailedDefaultsComponent(t *testing.T) {
	if got := Detailed(""); !strings.HasPrefix(got, "usageguard ") {
		t.Fatalf("unexpected detailed version %q", got)
	}
}
