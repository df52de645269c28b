// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package langreg

// DefaultCompatibilityTable is the built-in extension-compatibility table
// (spec §4.6): web-language extensions that commonly import one another
// across the .ts/.tsx/.js/.jsx boundary are grouped so a rename of one
// triggers rewrite scanning across the whole group, not just same-extension
// files.
func DefaultCompatibilityTable() map[string][]string {
	web := []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
	table := make(map[string][]string, len(web))
	for _, ext := range web {
		table[ext] = web
	}
	return table
}
