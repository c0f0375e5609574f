package internal

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

const (

	// Name of the program, used for logger groups and directory naming.
	Name = "cibox"

	// String to indicate an undefined variable
	defaultUndefined = "(undefined)"

	// String to indicate a local (non-pipeline) build
	defaultLocalBuild = "(local)"

	// Main branch name used in version strings
	mainBranch = "main"
)

var (
	version   = "" // Version number (e.g., "1.2.3")
	stage     = "" // Development stage or git branch (e.g., "staging", "main")
	gitCommit = "" // Git commit hash (e.g., "a1b2c3d4")

	rawQuiet   = "false" // Whether to enable quiet mode
	rawDebug   = "false" // Whether to enable debug mode
	rawVerbose = "false" // Whether to enable verbose logging
)

// Build metadata stamped into the binary via linker flags.
type BuildInfo struct {
	Version string // Normalized version without a "v" prefix.
	Stage   string // Lowercased development stage.
	Commit  string // Git commit hash.
	Arch    string // Architecture the binary was built for.
	Local   bool   // Whether any pipeline variable was left unset.
}

// Returns the build metadata of the running binary.
//
// Unset variables are reported as "(undefined)". A build is considered local
// if any of the version, git commit, or stage variables are unset.
func Build() BuildInfo {
	return BuildInfo{
		Version: normalizeVersion(version),
		Stage:   orUndefined(strings.ToLower(strings.TrimSpace(stage))),
		Commit:  orUndefined(strings.TrimSpace(gitCommit)),
		Arch:    runtime.GOARCH,
		Local: strings.TrimSpace(version) == "" ||
			strings.TrimSpace(gitCommit) == "" ||
			strings.TrimSpace(stage) == "",
	}
}

// Formats the build metadata as "<version>+<stage> <commit> [<arch>]".
//
// The stage suffix is omitted for the main branch. Local builds are reported
// as "(local)".
func (b BuildInfo) String() string {
	if b.Local {
		return defaultLocalBuild
	}

	s := "+" + b.Stage
	if b.Stage == mainBranch {
		s = ""
	}

	return fmt.Sprintf("%s%s %s [%s]", b.Version, s, b.Commit, b.Arch)
}

// Returns the detailed version string of the running binary.
func VersionString() string {
	return Build().String()
}

// Logging modes seeded from linker flags and overridden by CLI flags.
type Modes struct {
	Quiet   bool // Only warnings and errors.
	Debug   bool // Debug level output, including diagnostic streams.
	Verbose bool // Include source locations in log records.
}

// Returns the modes set at build time.
//
// The rawQuiet, rawDebug, and rawVerbose variables should be set via ldflags.
// Values that do not parse as booleans are treated as false.
func DefaultModes() Modes {
	return Modes{
		Quiet:   parseFlag(rawQuiet),
		Debug:   parseFlag(rawDebug),
		Verbose: parseFlag(rawVerbose),
	}
}

// Combines build-time modes with flags given on the command line.
func (m Modes) Merge(o Modes) Modes {
	return Modes{
		Quiet:   m.Quiet || o.Quiet,
		Debug:   m.Debug || o.Debug,
		Verbose: m.Verbose || o.Verbose,
	}
}

func parseFlag(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func normalizeVersion(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.TrimPrefix(v, "v")
	return orUndefined(v)
}

func orUndefined(s string) string {
	if s == "" {
		return defaultUndefined
	}
	return s
}
