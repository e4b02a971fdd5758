package dataset

import (
	"os"
	"path/filepath"

	"github.com/sells-group/bench-export/internal/model"
)

// Handle locates a subset that exists under a dataset root.
type Handle struct {
	Subset model.Subset
	Path   string
}

// SubsetPath returns the expected location of subset under root.
func SubsetPath(root string, subset model.Subset) string {
	return filepath.Join(root, string(subset))
}

// Exists reports whether a dataset directory is present for subset under root.
// It does not open or validate the data.
func Exists(root string, subset model.Subset) bool {
	info, err := os.Stat(SubsetPath(root, subset))
	return err == nil && info.IsDir()
}

// Resolve returns a handle for every catalog subset present under root,
// in catalog order. Absent subsets are left out.
func Resolve(root string, catalog []model.Subset) []Handle {
	var handles []Handle
	for _, s := range catalog {
		if !Exists(root, s) {
			continue
		}
		handles = append(handles, Handle{Subset: s, Path: SubsetPath(root, s)})
	}
	return handles
}
