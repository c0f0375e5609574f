// Parses flags, configures logging, and runs cibox commands.
//
// The following flags apply to every command:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Include source locations in log output.
//	-d, --debug     Enable debug output.
//	-c, --config    Settings file.
//
// The run command is the default, so "cibox <source>" runs a build. Flags
// override values from the settings file, which override build-time
// defaults set via linker flags. After parsing, the global logger is
// reconfigured to the final level before any command runs.
package cli
