package catalog

import (
	"os"
	"path/filepath"

	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/sections"
)

// UserCatalogDir returns ~/.almostacms/sections, or "" when the home
// directory cannot be determined.
func UserCatalogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".almostacms", "sections")
}

// LoadUserCatalogFromDir loads user section definitions from dir.
// A missing directory yields no definitions and no error. A broken catalog
// file is logged and skipped as a whole so one typo cannot hide the
// built-in sections.
func LoadUserCatalogFromDir(dir string) []*sections.Definition {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}

	names, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil
	}

	var all []*sections.Definition
	for _, full := range names {
		name := filepath.Base(full)
		data, err := os.ReadFile(full)
		if err != nil {
			log.Warn(log.CatSections, "reading user catalog", "file", name, "error", err.Error())
			continue
		}
		defs, err := Parse(data, sections.SourceUser)
		if err != nil {
			log.Warn(log.CatSections, "skipping user catalog", "file", name, "error", err.Error())
			continue
		}
		all = append(all, defs...)
	}
	return all
}
