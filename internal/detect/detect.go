// Package detect diffs a source folder against the persisted fingerprint table.
package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kitsunelab/atsume/internal/fingerprint"
	"github.com/kitsunelab/atsume/internal/models"
)

// Result is the outcome of one detection pass over a folder.
type Result struct {
	// Changed lists filenames that are new or whose contents changed since
	// they were last recorded, sorted by name.
	Changed []string
	// Fingerprints maps every readable, extension-matching filename in the
	// folder to its current digest (changed or not).
	Fingerprints map[string]string
	// Skipped lists files that matched the filter but could not be read.
	Skipped []models.SkippedFile
}

// Detect lists the files in folder whose extension is in exts
// (case-insensitive; empty exts accepts everything), fingerprints each, and
// returns the ones absent from known or recorded with a different digest.
// Files present in known but gone from the folder are not reported here;
// deletion handling is a separate reconciliation policy. Read-only.
func Detect(folder string, exts []string, known map[string]string) (*Result, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folder, err)
	}
	res := &Result{Fingerprints: make(map[string]string)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !ExtensionAllowed(filepath.Ext(name), exts) {
			continue
		}
		fp, err := fingerprint.File(filepath.Join(folder, name))
		if err != nil {
			res.Skipped = append(res.Skipped, models.SkippedFile{Name: name, Reason: "unreadable"})
			continue
		}
		res.Fingerprints[name] = fp
		if prev, ok := known[name]; !ok || prev != fp {
			res.Changed = append(res.Changed, name)
		}
	}
	sort.Strings(res.Changed)
	return res, nil
}

// ExtensionAllowed reports whether ext is in allowed, ignoring case and
// leading dots. An empty allowed list accepts any extension.
func ExtensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
