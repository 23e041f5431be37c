// Package version holds the build information injected with ldflags:
//
//	-ldflags "-X scriptdex/internal/version.version=v1.2.0 -X scriptdex/internal/version.commit=abc123 -X scriptdex/internal/version.buildTime=2026-01-01T00:00:00Z"
package version

import (
	"fmt"
	"io"
	"strings"
	"time"
)

//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name of the application displayed in version output.
const ApplicationName = "scriptdex"

// Default values used when version information is not available.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// VersionInfo is the resolved build information.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// GetVersion returns the build information, with defaults for values not injected.
func GetVersion() *VersionInfo {
	return &VersionInfo{
		Version:   withDefault(version, DefaultVersion),
		Commit:    withDefault(commit, DefaultCommit),
		BuildTime: withDefault(buildTime, DefaultBuildTime),
	}
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// FormatFull returns the multi-line version block.
func (vi *VersionInfo) FormatFull() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nVersion: %s\nCommit: %s\nBuilt: %s\n", ApplicationName, vi.Version, vi.Commit, vi.BuildTime)
	return b.String()
}

// Write prints the version only when short is set, the full block otherwise.
func (vi *VersionInfo) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, vi.Version)
		return err
	}
	_, err := fmt.Fprint(w, vi.FormatFull())
	return err
}

// IsDevelopment returns true if the version indicates a development build.
func (vi *VersionInfo) IsDevelopment() bool {
	return vi.Version == DefaultVersion
}

// GetBuildTime parses the build time. Unparseable or missing values give the zero time.
func (vi *VersionInfo) GetBuildTime() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, vi.BuildTime); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SetBuildVars overrides the injected values. Used by tests.
func SetBuildVars(ver, com, bt string) {
	version, commit, buildTime = ver, com, bt
}

// ResetBuildVars clears the injected values.
func ResetBuildVars() {
	SetBuildVars("", "", "")
}
