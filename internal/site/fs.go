package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/log"
)

// Dir serves a site from a local directory and saves into its data/ folder.
type Dir struct {
	root string
}

var (
	_ Source    = (*Dir)(nil)
	_ Persister = (*Dir)(nil)
)

// NewDir returns a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the site directory.
func (d *Dir) Root() string { return d.root }

// Resolve maps a site path to a file path under the root.
func (d *Dir) Resolve(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(Clean(p)))
}

func (d *Dir) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.Resolve(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Clean(p))
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes data/<dataFile> through a temp file and rename so a crash
// never leaves a half-written document.
func (d *Dir) Save(ctx context.Context, dataFile string, doc content.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := d.Resolve(DataPath(dataFile))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(Encode(doc)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", dataFile, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dataFile, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", dataFile, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename %s: %w", dataFile, err)
	}

	log.Info(log.CatSite, "section saved", "file", target)
	return nil
}
