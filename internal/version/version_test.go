package version

import (
	"testing"

	"github.com/fatih/color"
)

func override(t *testing.T, version, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = version, commit, date
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestSummary_OptionalFields(t *testing.T) {
	override(t, "1.2.3", "", "")
	if got := Summary(false); got != "tyinc 1.2.3\n" {
		t.Errorf("Summary = %q", got)
	}

	override(t, "1.2.3", "abc123def456", "2024-01-15T10:30:00Z")
	want := "tyinc 1.2.3\ncommit: abc123def456\nbuilt:  2024-01-15T10:30:00Z\n"
	if got := Summary(false); got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

func TestColored_KeepsText(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "nightly"} {
		override(t, v, "", "")
		if got := Colored(); got != v {
			t.Errorf("Colored(%q) = %q", v, got)
		}
	}
}

func TestColored_HighlightsComponents(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })

	override(t, "2.0.0-alpha", "", "")
	if got := Colored(); got == Version {
		t.Errorf("Colored did not add escapes: %q", got)
	}
}
