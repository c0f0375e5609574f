package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/cruciblehq/cibox/internal/manifest"
)

// Glob of the descriptors compiled into the binary.
const builtinPattern = "defaults/*.yml"

//go:embed defaults/*.yml
var builtin embed.FS

// Baseline configurations indexed by language, then variant label.
//
// A catalog is populated once by one of the loaders and is read-only
// thereafter.
type Catalog map[string]map[string]manifest.Config

// Loads every descriptor on disk matching the glob pattern.
//
// A pattern matching no files yields an empty catalog. Any malformed or
// incomplete descriptor fails the whole load with [ErrConfig].
func Load(pattern string) (Catalog, error) {
	names, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return load(names, os.ReadFile)
}

// Loads every descriptor in fsys matching the glob pattern.
func LoadFS(fsys fs.FS, pattern string) (Catalog, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return load(names, func(name string) ([]byte, error) {
		return fs.ReadFile(fsys, name)
	})
}

// Returns the catalog of descriptors shipped with the binary.
func Builtin() (Catalog, error) {
	return LoadFS(builtin, builtinPattern)
}

func load(names []string, read func(string) ([]byte, error)) (Catalog, error) {
	cat := make(Catalog)

	for _, name := range names {
		data, err := read(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, name, err)
		}

		configs, err := parseDescriptor(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, name, err)
		}

		for _, cfg := range configs {
			if err := cat.add(cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrConfig, name, err)
			}
		}
	}

	return cat, nil
}

func (c Catalog) add(cfg manifest.Config) error {
	variants, ok := c[cfg.Language]
	if !ok {
		variants = make(map[string]manifest.Config)
		c[cfg.Language] = variants
	}
	if _, dup := variants[cfg.Variant]; dup {
		return fmt.Errorf("duplicate variant %q for language %q", cfg.Variant, cfg.Language)
	}
	variants[cfg.Variant] = cfg
	return nil
}

// Whether the catalog has any variant of the language.
func (c Catalog) Has(language string) bool {
	_, ok := c[language]
	return ok
}

// Returns a copy of the baseline config of a language variant.
//
// Fails with [ErrUnsupportedLanguage] if either the language or the variant
// is unknown.
func (c Catalog) Lookup(language, variant string) (manifest.Config, error) {
	variants, ok := c[language]
	if !ok {
		return manifest.Config{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	cfg, ok := variants[variant]
	if !ok {
		return manifest.Config{}, fmt.Errorf("%w: %s (variant %s)", ErrUnsupportedLanguage, language, variant)
	}
	return cfg.Clone(), nil
}

// Returns the known languages, sorted.
func (c Catalog) Languages() []string {
	langs := make([]string, 0, len(c))
	for lang := range c {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// Returns the known variants of a language, sorted.
func (c Catalog) Variants(language string) []string {
	variants := make([]string, 0, len(c[language]))
	for v := range c[language] {
		variants = append(variants, v)
	}
	slices.Sort(variants)
	return variants
}
