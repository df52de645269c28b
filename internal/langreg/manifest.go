// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package langreg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestDoc is the on-disk shape of a language manifest file: a list of
// languages, each with its extensions and category. Capabilities
// (Parse/ImportParser/RewriteFileReferences/...) are Go-native hooks and
// are never described in the manifest itself — a full entry is wired to
// its hooks in code via RegisterCapabilities after LoadManifest.
type manifestDoc struct {
	Languages []manifestLanguage `yaml:"languages"`
}

type manifestLanguage struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
	Category   string   `yaml:"category"`
}

// LoadManifest reads a YAML language manifest from path and registers
// every entry into r. Entries default to CategoryConfigOnly when the
// manifest omits a category, since a manifest entry alone cannot supply
// Go-native capability hooks.
func LoadManifest(r *Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading language manifest %s: %w", path, err)
	}

	var doc manifestDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing language manifest %s: %w", path, err)
	}

	for _, entry := range doc.Languages {
		category := Category(entry.Category)
		if category == "" {
			category = CategoryConfigOnly
		}
		r.Register(Language{
			Name:       entry.Name,
			Extensions: entry.Extensions,
			Category:   category,
		})
	}
	return nil
}

// RegisterCapabilities upgrades an already-registered language (typically
// loaded as config-only from the manifest) to CategoryFull with the given
// Go-native capability hooks. Returns an error if name was never
// registered — capabilities can only be attached to a known language.
func RegisterCapabilities(r *Registry, name string, caps Capabilities) error {
	lang, ok := r.ForName(name)
	if !ok {
		return fmt.Errorf("langreg: cannot attach capabilities to unregistered language %q", name)
	}
	lang.Category = CategoryFull
	lang.Capabilities = caps
	r.Register(lang)
	return nil
}

// CompatibleExtensions reports the set of file extensions considered
// import-compatible with sourceExt: rewrites triggered by a rename of a
// file with sourceExt are only attempted against files whose extension
// appears here (spec §4.6 "Extension compatibility"). Languages that
// register no explicit compatibility class are compatible only with
// themselves.
func (r *Registry) CompatibleExtensions(sourceExt string, table map[string][]string) ([]string, error) {
	if _, ok := r.ForExtension(sourceExt); !ok {
		return nil, errUnknownExtension(sourceExt)
	}
	if compatible, ok := table[sourceExt]; ok {
		return compatible, nil
	}
	return []string{sourceExt}, nil
}
