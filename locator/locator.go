// Package locator finds the root of a project tree by searching upward for a marker file.
package locator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// NotFoundError is returned when no directory between the starting directory and the
// filesystem root contains the marker file.
type NotFoundError struct {
	StartDir string
	Marker   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unable to find %s in %s or any of its parent directories", e.Marker, e.StartDir)
}

// Project describes where an application lives inside a resolved project tree.
type Project struct {
	Root string // directory containing the marker file
	Dir  string // application directory
	File string // application project file, named after Dir
}

// ResolveRoot returns the nearest directory, starting at startDir itself, that contains
// a file named marker.
func ResolveRoot(startDir, marker string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", startDir)
	}
	for {
		info, err := os.Stat(filepath.Join(dir, marker))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "checking %s for %s", dir, marker)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &NotFoundError{StartDir: startDir, Marker: marker}
		}
		dir = parent
	}
}

// ProjectFile returns root/appPath/<last element of appPath><ext>.
func ProjectFile(root, appPath, ext string) string {
	return filepath.Join(root, appPath, filepath.Base(appPath)+ext)
}

// Resolve finds the project root from startDir and locates the application inside it.
func Resolve(startDir, marker, appPath, ext string) (Project, error) {
	root, err := ResolveRoot(startDir, marker)
	if err != nil {
		return Project{}, err
	}
	file := ProjectFile(root, appPath, ext)
	return Project{
		Root: root,
		Dir:  filepath.Dir(file),
		File: file,
	}, nil
}
