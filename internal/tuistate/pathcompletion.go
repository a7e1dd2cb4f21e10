package tuistate

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// computePathCompletions mirrors compute_path_completions/list_dir_entries
// from original_source/src/tui/state/executables.rs: empty input lists
// "./"; input ending in "/" lists that directory; otherwise the input is
// split into (parent, prefix) and entries in parent are filtered by a
// case-insensitive prefix match. Directory names are suffixed with "/".
// Dotfiles are hidden unless prefix is non-empty. A directory that cannot
// be read yields an empty completion list, never an error.
func computePathCompletions(input string) []string {
	if input == "" {
		return listDirEntries(".", "")
	}
	if strings.HasSuffix(input, "/") {
		return listDirEntries(input, "")
	}
	parent := filepath.Dir(input)
	if parent == "" {
		parent = "."
	}
	prefix := filepath.Base(input)
	return listDirEntries(parent, prefix)
}

func listDirEntries(dir, prefix string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	prefixLower := strings.ToLower(prefix)
	var results []string
	for _, entry := range entries {
		name := entry.Name()
		if prefixLower != "" && !strings.HasPrefix(strings.ToLower(name), prefixLower) {
			continue
		}
		if strings.HasPrefix(name, ".") && prefix == "" {
			continue
		}
		full := filepath.Join(dir, name)
		if entry.IsDir() {
			full += "/"
		}
		results = append(results, full)
	}
	sort.Strings(results)
	return results
}
