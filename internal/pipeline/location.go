package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"
)

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LocalPath converts a file:// URL to a path; other locations are returned as-is
func LocalPath(location string) string {
	if strings.HasPrefix(location, "file://") {
		if u, err := url.Parse(location); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}
	return location
}

// JoinLocation resolves name against base. Absolute URLs and absolute paths
// in name are returned unchanged; an empty base returns name.
func JoinLocation(base, name string) (string, error) {
	if IsRemote(name) || strings.HasPrefix(name, "file://") || filepath.IsAbs(name) || base == "" {
		return name, nil
	}

	if IsRemote(base) {
		return url.JoinPath(base, name)
	}

	return filepath.Join(LocalPath(base), filepath.FromSlash(name)), nil
}
