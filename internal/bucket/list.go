package bucket

import (
	"fmt"

	"github.com/raoulx24/shardpack/internal/fs"
	"github.com/raoulx24/shardpack/internal/logging"
)

// List reads dir once and returns the names of its numeric entries in
// directory order. The entry type is not checked here: a numeric name that
// is not a directory fails later, inside its own job.
func List(f fs.FS, dir string, log logging.Logger) ([]string, error) {
	entries, err := f.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		log.Debug(2, "considering %q", name)
		if !IsNumeric(name) {
			continue
		}
		log.Debug(3, "processing %q", name)
		names = append(names, name)
	}
	return names, nil
}
