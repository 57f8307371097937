package workspace

import (
	"strings"
)

const gitScheme = "git://"

// Identity is what a workspace's original root identifier resolves to.
type Identity struct {
	// Key names the workspace's dependency cache directory.
	Key string
	// Root is the identifier without its revision.
	Root string
	// Revision is the part after "?" in "git://host/repo?rev".
	Revision string
}

// DeriveIdentity turns an original root identifier such as
// "git://github.com/python/cpython?v3.6.4" into a cache key
// ("github.com.python.cpython.v3.6.4"). The same identifier always yields
// the same key so repeated sessions reuse one cache.
func DeriveIdentity(originalRoot string) Identity {
	id := Identity{Root: originalRoot}
	if strings.HasPrefix(originalRoot, gitScheme) {
		if repo, rev, ok := strings.Cut(originalRoot, "?"); ok {
			id.Root, id.Revision = repo, rev
		}
	}

	key := strings.NewReplacer("/", ".", "\\", ".").Replace(strings.TrimPrefix(id.Root, gitScheme))
	if id.Revision != "" {
		key += "." + id.Revision
	}
	if strings.Trim(key, ".") == "" {
		key = "default"
	}
	id.Key = key
	return id
}
