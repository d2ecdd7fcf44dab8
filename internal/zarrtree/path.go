package zarrtree

import (
	"fmt"
	"strings"

	"github.com/jwodder/zarrgallery/internal/walkerr"
)

// ExcludedDotfileNames is the fixed set of path components excluded from
// hashing when the -E/--exclude-dotfiles flag is set (spec.md §4.1).
var ExcludedDotfileNames = map[string]struct{}{
	".dandi":         {},
	".datalad":       {},
	".git":           {},
	".gitattributes": {},
	".gitmodules":    {},
}

// ValidateComponent checks a single path component against spec.md §4.1:
// it must not be empty, must not be "." or "..", and must not contain a
// "/" or a NUL byte. Component comparison elsewhere is byte-exact.
func ValidateComponent(component string) error {
	switch {
	case component == "":
		return fmt.Errorf("path component is empty")
	case component == "." || component == "..":
		return fmt.Errorf("path component %q is not allowed", component)
	case strings.ContainsRune(component, '/'):
		return fmt.Errorf("path component %q contains a slash", component)
	case strings.ContainsRune(component, 0):
		return fmt.Errorf("path component %q contains a NUL byte", component)
	}
	return nil
}

// JoinRelPath validates component against the path policy and appends it
// to parentRelPath ("" for a root-level entry), joined with "/".
func JoinRelPath(parentRelPath, component string) (string, error) {
	if err := ValidateComponent(component); err != nil {
		return "", walkerr.New(walkerr.PathPolicy, component, err)
	}
	if parentRelPath == "" {
		return component, nil
	}
	return parentRelPath + "/" + component, nil
}

// IsExcludedDotfile reports whether relPath has any component exactly
// equal to one of ExcludedDotfileNames.
func IsExcludedDotfile(relPath string) bool {
	for _, c := range strings.Split(relPath, "/") {
		if _, ok := ExcludedDotfileNames[c]; ok {
			return true
		}
	}
	return false
}
