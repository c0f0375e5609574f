package manifest

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Named phase of a build.
type Stage string

const (
	BeforeInstall Stage = "before_install"
	Install       Stage = "install"
	BeforeScript  Stage = "before_script"
	Script        Stage = "script"
	AfterSuccess  Stage = "after_success"
	AfterFailure  Stage = "after_failure"
	AfterScript   Stage = "after_script"
)

// All stage keys in declaration order.
var Stages = []Stage{
	BeforeInstall,
	Install,
	BeforeScript,
	Script,
	AfterSuccess,
	AfterFailure,
	AfterScript,
}

// Variant label used when a build file or descriptor names none.
const DefaultVariant = "default"

// Ordered list of shell commands.
//
// Decodes from either a single scalar or a sequence of scalars. A null value
// decodes to an empty list.
type Commands []string

// Implements [yaml.Unmarshaler].
func (c *Commands) UnmarshalYAML(node *yaml.Node) error {
	values, err := Scalars(node)
	if err != nil {
		return err
	}
	*c = values
	return nil
}

// Returns the scalar values of a node that is either a scalar or a sequence
// of scalars. Scalars are returned as written, so "3.10" stays "3.10" rather
// than becoming a float.
func Scalars(node *yaml.Node) ([]string, error) {
	if node == nil {
		return nil, nil
	}

	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return nil, nil
		}
		return []string{node.Value}, nil

	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: expected a scalar, got a nested block", item.Line)
			}
			values = append(values, item.Value)
		}
		return values, nil

	case yaml.AliasNode:
		return Scalars(node.Alias)

	default:
		return nil, fmt.Errorf("line %d: expected a scalar or a list", node.Line)
	}
}

// Effective configuration of a single build.
//
// Values are never shared between Config instances; [Config.Clone] and the
// constructors in this module copy command lists.
type Config struct {
	Language    string             // Declared language.
	Variant     string             // Variant label within the language.
	Image       string             // Sandbox image, always taken from the defaults catalog.
	Environment string             // Space-separated environment assignments.
	Commands    map[Stage]Commands // Command list per stage.
}

// Returns a copy of the command list of a stage.
//
// A stage that was never set yields an empty list.
func (c Config) Stage(s Stage) []string {
	return slices.Clone(c.Commands[s])
}

// Returns a deep copy of the config.
func (c Config) Clone() Config {
	out := c
	out.Commands = make(map[Stage]Commands, len(c.Commands))
	for k, v := range c.Commands {
		out.Commands[k] = slices.Clone(v)
	}
	return out
}

// Short human-readable label of the matrix entry.
func (c Config) Label() string {
	if c.Environment == "" {
		return fmt.Sprintf("%s/%s", c.Language, c.Variant)
	}
	return fmt.Sprintf("%s/%s (%s)", c.Language, c.Variant, c.Environment)
}
