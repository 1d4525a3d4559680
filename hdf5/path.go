package hdf5

import (
	"fmt"
	"strings"
)

// ParseAttrPath splits an attribute path at its last '@' into an absolute
// object path and an attribute name: "/@v" gives "/" and "v", "data@u"
// gives "/data" and "u".
func ParseAttrPath(p string) (objectPath, attrName string, err error) {
	at := strings.LastIndex(p, "@")
	if at < 0 {
		return "", "", fmt.Errorf("%w: attribute path %q has no '@'", ErrInvalidPath, p)
	}
	objectPath, attrName = p[:at], p[at+1:]
	if attrName == "" {
		return "", "", fmt.Errorf("%w: attribute path %q has no name", ErrInvalidPath, p)
	}
	if !strings.HasPrefix(objectPath, "/") {
		objectPath = "/" + objectPath
	}
	return objectPath, attrName, nil
}

// JoinAttrPath is the inverse of ParseAttrPath.
func JoinAttrPath(objectPath, attrName string) string {
	if objectPath == "/" {
		return "/@" + attrName
	}
	return objectPath + "@" + attrName
}

// SplitPath returns the components of a path, ignoring leading, trailing
// and repeated slashes.
func SplitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
