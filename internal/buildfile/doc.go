// Package buildfile discovers and resolves the build file of a source tree.
//
// The build file is looked up under each of [Candidates] in turn and merged
// with the defaults catalog into a build matrix: the cartesian product of the
// declared language variants and environments, one [manifest.Config] per
// combination.
//
//	language: python
//	python: ["3.12", "3.13"]
//	environment: [DB=sqlite, DB=postgres]
//	script: pytest
//
// The example yields four configs, ordered (3.12, sqlite), (3.12, postgres),
// (3.13, sqlite), (3.13, postgres).
package buildfile
