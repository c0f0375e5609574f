// Package manifest defines the build configuration shared by the defaults
// catalog, the build file resolver, and the stage pipeline.
//
// A [Config] carries a language, the variant of that language's toolchain,
// the sandbox image, an environment string, and an ordered command list for
// each of the seven [Stage] keys. Command lists are written in YAML as either
// a single scalar or a sequence; [Commands] normalizes both forms to a list.
package manifest
