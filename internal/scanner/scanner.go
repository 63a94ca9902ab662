// Package scanner walks a registered source directory and emits
// file-candidate records for every regular file whose extension maps
// to a known domain.PhotoFormat. Grounded on the teacher's
// OSFilesystemManager.FindFiles (filepath.WalkDir, symlink rejection
// in Resolve), generalized to terminate on symlink loops and to
// reject symlinks that resolve outside the source root rather than
// rejecting all symlinks outright.
package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"photocore/internal/corerr"
	"photocore/internal/domain"
)

// Candidate is one file discovered under a source root.
type Candidate struct {
	Path   string
	Size   int64
	MTime  int64
	Format domain.PhotoFormat
}

// Walk recursively scans root, a registered source directory, and
// returns one Candidate per regular file with a recognized extension.
// Symlinks are followed only when they resolve within root. Loops are
// cut by a visited-real-directory set; symlinks that escape root and
// unreadable entries are reported through skipped. Neither aborts the
// scan.
func Walk(root string, skipped func(error)) ([]Candidate, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &corerr.IoError{Path: root, Err: err}
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, &corerr.IoError{Path: root, Err: err}
	}

	var candidates []Candidate
	visitedDirs := map[string]bool{}

	var walkDir func(dir string) error
	walkDir = func(dir string) error {
		realDir, err := filepath.EvalSymlinks(dir)
		if err != nil {
			if skipped != nil {
				skipped(&corerr.IoError{Path: dir, Err: err})
			}
			return nil
		}
		if visitedDirs[realDir] {
			return nil
		}
		visitedDirs[realDir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			if skipped != nil {
				skipped(&corerr.IoError{Path: dir, Err: err})
			}
			return nil
		}

		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				if skipped != nil {
					skipped(&corerr.IoError{Path: full, Err: err})
				}
				continue
			}

			if info.Mode()&os.ModeSymlink != 0 {
				resolved, err := filepath.EvalSymlinks(full)
				if err != nil {
					if skipped != nil {
						skipped(&corerr.IoError{Path: full, Err: err})
					}
					continue
				}
				if !withinRoot(resolved, realRoot) {
					if skipped != nil {
						skipped(&corerr.PathEscapesSourceError{Path: full, Source: root})
					}
					continue
				}
				resolvedInfo, err := os.Stat(resolved)
				if err != nil {
					continue
				}
				if resolvedInfo.IsDir() {
					if err := walkDir(full); err != nil {
						return err
					}
					continue
				}
				info = resolvedInfo
				full = resolved
			} else if entry.IsDir() {
				if err := walkDir(full); err != nil {
					return err
				}
				continue
			}

			if !info.Mode().IsRegular() {
				continue
			}

			format, ok := domain.FormatFromExtension(strings.ToLower(filepath.Ext(entry.Name())))
			if !ok {
				continue
			}

			candidates = append(candidates, Candidate{
				Path:   full,
				Size:   info.Size(),
				MTime:  info.ModTime().Unix(),
				Format: format,
			})
		}
		return nil
	}

	if err := walkDir(absRoot); err != nil {
		return nil, err
	}
	return candidates, nil
}

func withinRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}
