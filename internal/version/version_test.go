package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withVersion(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = v, commit, date
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })
}

func TestColored(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	tests := []string{
		"0.1.0-dev",
		"1.2.3",
		"1.0.0-beta.1",
		"nightly",
	}
	for _, v := range tests {
		withVersion(t, v, "", "")
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestBanner(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	withVersion(t, "1.2.3", "1234567890abcdef1234", "2026-10-19T10:30:00Z")
	got := Banner()
	for _, want := range []string{"rectify 1.2.3", "(1234567890ab)", "built 2026-10-19T10:30:00Z", runtime.GOOS} {
		if !strings.Contains(got, want) {
			t.Errorf("banner %q lacks %q", got, want)
		}
	}

	withVersion(t, "1.2.3", "", "")
	if got := Banner(); strings.Contains(got, "built") || strings.Contains(got, "(") {
		t.Errorf("optional fields rendered: %q", got)
	}
}
