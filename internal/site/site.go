// Package site reads and writes a site's files: the .almostacms.json
// manifest and the JSON documents under data/.
//
// Paths passed to a Source are site-absolute URL paths such as
// "/.almostacms.json" or "/data/hero.json", the same paths a browser would
// request from the published site.
package site

import (
	"context"
	"path"
	"strings"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/domain"
)

// ManifestFile is the manifest file name at the site root.
const ManifestFile = ".almostacms.json"

// ErrNotFound is returned by sources for missing files.
var ErrNotFound = domain.ErrNotFound

// Source reads site files.
type Source interface {
	// Fetch returns the raw bytes at a site-absolute path. Missing files
	// fail with an error matching ErrNotFound.
	Fetch(ctx context.Context, p string) ([]byte, error)
}

// Persister writes section documents.
type Persister interface {
	// Save stores doc as data/<dataFile>.
	Save(ctx context.Context, dataFile string, doc content.Value) error
}

// DataPath returns the site path of a section data file.
func DataPath(dataFile string) string {
	return "/data/" + strings.TrimLeft(dataFile, "/")
}

// Clean normalizes a site path, resolving dot segments. The result always
// starts with "/" and never climbs above the site root.
func Clean(p string) string {
	return path.Clean("/" + p)
}

// Encode renders doc the way saved data files look: two-space indent, no
// trailing newline.
func Encode(doc content.Value) []byte {
	return doc.Pretty()
}

// CommitMessage is the message used for saves that become commits.
func CommitMessage(dataFile string) string {
	return "Update " + strings.TrimSuffix(dataFile, ".json") + " via AlmostaCMS"
}
