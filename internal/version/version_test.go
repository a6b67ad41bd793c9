package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStrings(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Revision)

	short := Short()
	assert.Contains(t, short, Version)
	assert.Contains(t, short, Revision)

	detailed := DetailedWithApp()
	assert.True(t, strings.HasPrefix(detailed, AppName+" "))
	assert.Contains(t, detailed, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, AppName, info.App)
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestApplyBuildInfo(t *testing.T) {
	origVersion, origRevision, origBuildDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = origVersion, origRevision, origBuildDate
	})

	t.Run("fills dev defaults", func(t *testing.T) {
		Version, Revision, BuildDate = devVersion, "HEAD", ""
		applyBuildInfo("v1.2.3", map[string]string{
			"vcs.revision": "0123456789abcdef",
			"vcs.modified": "true",
			"vcs.time":     "2026-01-02T03:04:05Z",
		})

		assert.Equal(t, "1.2.3", Version)
		assert.Equal(t, "0123456789ab-dirty", Revision)
		assert.Equal(t, "2026-01-02T03:04:05Z", BuildDate)
	})

	t.Run("keeps ldflags values", func(t *testing.T) {
		Version, Revision, BuildDate = "9.9.9", "release", "today"
		applyBuildInfo("(devel)", map[string]string{"vcs.revision": "abc"})

		assert.Equal(t, "9.9.9", Version)
		assert.Equal(t, "release", Revision)
		assert.Equal(t, "today", BuildDate)
	})
}
