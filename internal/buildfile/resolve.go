package buildfile

import (
	"errors"
	"fmt"

	"github.com/cruciblehq/cibox/internal/catalog"
	"github.com/cruciblehq/cibox/internal/manifest"
	"gopkg.in/yaml.v3"
)

const (
	languageKey    = "language"
	environmentKey = "environment"
)

// Resolves a raw build file against the defaults catalog.
//
// Returns one config per (variant, environment) pair, ordered variant-major
// and environment-minor in the order they are declared. The variant list is
// read from the key named after the language and defaults to "default"; the
// environment list defaults to a single empty environment. Each stage takes
// the build file's value if present and the catalog's otherwise. The image is
// always the catalog's, whatever the build file declares.
func Resolve(raw []byte, cat catalog.Catalog) ([]manifest.Config, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	language, err := scalar(doc, languageKey)
	if err != nil {
		return nil, err
	}
	if language == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, languageKey)
	}
	if !cat.Has(language) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnsupportedLanguage, language)
	}

	variants, err := list(doc, language, manifest.DefaultVariant)
	if err != nil {
		return nil, err
	}
	environments, err := list(doc, environmentKey, "")
	if err != nil {
		return nil, err
	}

	overrides := make(map[manifest.Stage]manifest.Commands)
	for _, stage := range manifest.Stages {
		node, ok := doc[string(stage)]
		if !ok {
			continue
		}
		values, err := manifest.Scalars(&node)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, stage, err)
		}
		if values == nil {
			values = []string{}
		}
		overrides[stage] = values
	}

	configs := make([]manifest.Config, 0, len(variants)*len(environments))
	for _, variant := range variants {
		for _, env := range environments {
			base, err := cat.Lookup(language, variant)
			if err != nil {
				return nil, err
			}

			cfg := base.Clone()
			cfg.Environment = env
			for stage, values := range overrides {
				cfg.Commands[stage] = append(manifest.Commands{}, values...)
			}
			configs = append(configs, cfg)
		}
	}

	return configs, nil
}

// Returns the scalar under a key, or "" when absent or null.
func scalar(doc map[string]yaml.Node, key string) (string, error) {
	node, ok := doc[key]
	if !ok {
		return "", nil
	}
	values, err := manifest.Scalars(&node)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
	}
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return values[0], nil
	default:
		return "", fmt.Errorf("%w: %s: %w", ErrMalformed, key, errors.New("expected a single value"))
	}
}

// Returns the values under a key coerced to a list, or a single fallback
// entry when the key is absent, null, or empty.
func list(doc map[string]yaml.Node, key, fallback string) ([]string, error) {
	node, ok := doc[key]
	if !ok {
		return []string{fallback}, nil
	}
	values, err := manifest.Scalars(&node)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
	}
	if len(values) == 0 {
		return []string{fallback}, nil
	}
	return values, nil
}
