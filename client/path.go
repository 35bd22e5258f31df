package client

import (
	"net/url"
	"path"
	"strings"
)

// prefixes
const (
	sessionPrefix   = "session/"
	provisionPrefix = "lock/provision/"
)

// escapeKey maps every id to its own single key segment
func escapeKey(id string) string {
	escaped := url.PathEscape(id)
	if escaped == "." || escaped == ".." {
		return strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}

func SessionPath(prefix string, id string) string {
	return path.Join(prefix, sessionPrefix, escapeKey(id))
}

func ProvisionLockPath(prefix string, id string) string {
	return path.Join(prefix, provisionPrefix, escapeKey(id))
}
