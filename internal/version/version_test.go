package version

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name                   string
		ver, com, bt           string
		wantVer, wantCom, want string
	}{
		{name: "defaults", wantVer: DefaultVersion, wantCom: DefaultCommit, want: DefaultBuildTime},
		{name: "all set", ver: "v1.0.0", com: "abc123", bt: "2026-01-01T00:00:00Z", wantVer: "v1.0.0", wantCom: "abc123", want: "2026-01-01T00:00:00Z"},
		{name: "only commit", com: "def456", wantVer: DefaultVersion, wantCom: "def456", want: DefaultBuildTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetBuildVars(tt.ver, tt.com, tt.bt)
			t.Cleanup(ResetBuildVars)

			info := GetVersion()
			assert.Equal(t, tt.wantVer, info.Version)
			assert.Equal(t, tt.wantCom, info.Commit)
			assert.Equal(t, tt.want, info.BuildTime)
		})
	}
}

func TestVersionInfo_Write(t *testing.T) {
	info := &VersionInfo{Version: "v1.2.0", Commit: "abc", BuildTime: "2026-01-01"}

	var short bytes.Buffer
	require.NoError(t, info.Write(&short, true))
	assert.Equal(t, "v1.2.0\n", short.String())

	var full bytes.Buffer
	require.NoError(t, info.Write(&full, false))
	assert.Equal(t, "scriptdex\nVersion: v1.2.0\nCommit: abc\nBuilt: 2026-01-01\n", full.String())
}

func TestVersionInfo_GetBuildTime(t *testing.T) {
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), (&VersionInfo{BuildTime: "2026-01-02"}).GetBuildTime())
	assert.True(t, (&VersionInfo{BuildTime: DefaultBuildTime}).GetBuildTime().IsZero())
	assert.True(t, (&VersionInfo{Version: DefaultVersion}).IsDevelopment())
}
