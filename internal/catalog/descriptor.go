package catalog

import (
	"errors"
	"fmt"
	"maps"

	"github.com/cruciblehq/cibox/internal/manifest"
	"gopkg.in/yaml.v3"
)

// Key holding nested sub-variant blocks.
const variantsKey = "variants"

// Raw descriptor document, keyed by top-level field name.
type document map[string]yaml.Node

// Parses one descriptor into its baseline configs.
//
// The descriptor itself yields one config, labeled by the value under the key
// named after its language (or "default"). Every block under "variants" is
// merged over the parent document and yields one more config labeled by the
// block's key.
func parseDescriptor(data []byte) ([]manifest.Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, errors.New("empty descriptor")
	}

	base, err := doc.config("")
	if err != nil {
		return nil, err
	}
	configs := []manifest.Config{base}

	blocks, ok := doc[variantsKey]
	if !ok || blocks.ShortTag() == "!!null" {
		return configs, nil
	}
	if blocks.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %s must be a mapping", blocks.Line, variantsKey)
	}

	for i := 0; i+1 < len(blocks.Content); i += 2 {
		label := blocks.Content[i].Value

		var override document
		if err := blocks.Content[i+1].Decode(&override); err != nil {
			return nil, fmt.Errorf("variant %s: %w", label, err)
		}

		merged := maps.Clone(doc)
		delete(merged, variantsKey)
		maps.Copy(merged, override)

		cfg, err := merged.config(label)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", label, err)
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

// Builds the config described by the document.
//
// The label overrides the variant named in the document when non-empty.
// Every stage key must be present; a null value stands for no commands.
func (d document) config(label string) (manifest.Config, error) {
	language, err := d.scalar("language")
	if err != nil {
		return manifest.Config{}, err
	}
	if language == "" {
		return manifest.Config{}, errors.New("missing language")
	}

	image, err := d.scalar("image")
	if err != nil {
		return manifest.Config{}, err
	}
	if image == "" {
		return manifest.Config{}, errors.New("missing image")
	}

	variant := label
	if variant == "" {
		if variant, err = d.scalar(language); err != nil {
			return manifest.Config{}, err
		}
	}
	if variant == "" {
		variant = manifest.DefaultVariant
	}

	cfg := manifest.Config{
		Language: language,
		Variant:  variant,
		Image:    image,
		Commands: make(map[manifest.Stage]manifest.Commands, len(manifest.Stages)),
	}

	for _, stage := range manifest.Stages {
		node, ok := d[string(stage)]
		if !ok {
			return manifest.Config{}, fmt.Errorf("missing %s", stage)
		}
		values, err := manifest.Scalars(&node)
		if err != nil {
			return manifest.Config{}, fmt.Errorf("%s: %w", stage, err)
		}
		if values == nil {
			values = []string{}
		}
		cfg.Commands[stage] = values
	}

	return cfg, nil
}

// Returns the scalar value of a key, or "" if the key is absent or null.
func (d document) scalar(key string) (string, error) {
	node, ok := d[key]
	if !ok || node.ShortTag() == "!!null" {
		return "", nil
	}
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: %s must be a scalar", node.Line, key)
	}
	return node.Value, nil
}
