// Package catalog loads the baseline build configuration of each supported
// language.
//
// Every descriptor is a YAML document declaring a language, the sandbox image
// for that language, and a default command list for each stage. A descriptor
// may name its variant under the key matching its language, and may nest
// further variants under "variants", each overriding the parent's fields:
//
//	language: python
//	image: python:3
//	install: pip install -r requirements.txt
//	variants:
//	  "3.12":
//	    image: python:3.12
//
// The descriptors compiled into the binary are available through [Builtin];
// [Load] reads descriptors from disk instead.
//
// Example usage:
//
//	cat, err := catalog.Load("/etc/cibox/defaults/*.yml")
//	if err != nil {
//	    return err
//	}
//
//	base, err := cat.Lookup("python", "3.12")
package catalog
