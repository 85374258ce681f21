// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
)

// ManifestName is the site manifest file name.
const ManifestName = ".almostacms.json"

// ResolveSiteRoot resolves the site checkout directory from user input.
//
// Input normalization:
//   - "" -> "."
//   - "/path/to/site/.almostacms.json" -> "/path/to/site"
//   - "/path/to/repo" with docs/.almostacms.json -> "/path/to/repo/docs"
//   - "/path/to/site/data" -> "/path/to/site" (walks up to the manifest)
//
// When no manifest is found in the directory or any parent, the cleaned
// input is returned unchanged so discovery can report the failure.
func ResolveSiteRoot(path string) string {
	if path == "" {
		path = "."
	}
	path = filepath.Clean(path)

	if filepath.Base(path) == ManifestName {
		return filepath.Dir(path)
	}

	// A repository that publishes from docs/ keeps its manifest there
	if hasManifest(filepath.Join(path, "docs")) && !hasManifest(path) {
		return filepath.Join(path, "docs")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	for dir := abs; ; {
		if hasManifest(dir) {
			if dir == abs {
				return path
			}
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return path
		}
		dir = parent
	}
}

// RepoPath reports how a site root sits inside its repository: "/docs" when
// the root is a docs folder, "/" otherwise.
func RepoPath(siteRoot string) string {
	abs, err := filepath.Abs(siteRoot)
	if err != nil {
		abs = siteRoot
	}
	if filepath.Base(abs) == "docs" {
		return "/docs"
	}
	return "/"
}

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ManifestName))
	return err == nil && !info.IsDir()
}
