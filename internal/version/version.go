package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Build metadata for the tyinc CLI. These variables can be overridden at
// build time via -ldflags "-X tyinc/internal/version.Version=...".
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored returns Version with its major, minor and patch numbers
// highlighted. Anything that is not major.minor.patch[-suffix] is returned
// as is.
func Colored() string {
	core, suffix, hasSuffix := strings.Cut(Version, "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if hasSuffix {
		out += "-" + suffix
	}
	return out
}

// Summary is the text printed by `tyinc version`.
func Summary(colored bool) string {
	v := Version
	if colored {
		v = Colored()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "tyinc %s\n", v)
	if GitCommit != "" {
		fmt.Fprintf(&sb, "commit: %s\n", GitCommit)
	}
	if BuildDate != "" {
		fmt.Fprintf(&sb, "built:  %s\n", BuildDate)
	}
	return sb.String()
}
