package site

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/github"
	"github.com/almostacms/almostacms/internal/log"
)

// Contents is the part of the GitHub client the repository adapter uses.
type Contents interface {
	GetFile(ctx context.Context, path string) (*github.File, error)
	PutFile(ctx context.Context, path string, data []byte, message, sha string) (*github.Commit, error)
}

var _ Contents = (*github.Client)(nil)

// Repo serves a site from a GitHub repository. With repoPath "/docs" the
// site lives under docs/ in the repository, otherwise at its root.
type Repo struct {
	contents Contents
	prefix   string

	mu   sync.Mutex
	shas map[string]string
}

var (
	_ Source    = (*Repo)(nil)
	_ Persister = (*Repo)(nil)
)

// NewRepo returns a repository-backed site.
func NewRepo(contents Contents, repoPath string) *Repo {
	prefix := ""
	if strings.Trim(repoPath, "/") == "docs" {
		prefix = "docs/"
	}
	return &Repo{contents: contents, prefix: prefix, shas: make(map[string]string)}
}

// RepoPath maps a site path to its path in the repository.
func (r *Repo) RepoPath(p string) string {
	return r.prefix + strings.TrimPrefix(Clean(p), "/")
}

func (r *Repo) Fetch(ctx context.Context, p string) ([]byte, error) {
	f, err := r.contents.GetFile(ctx, r.RepoPath(p))
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.shas[f.Path] = f.SHA
	r.mu.Unlock()
	return f.Content, nil
}

// Save commits data/<dataFile>. The current blob sha is always re-read
// first so the commit does not clobber a newer upstream change unnoticed.
func (r *Repo) Save(ctx context.Context, dataFile string, doc content.Value) error {
	path := r.RepoPath(DataPath(dataFile))

	sha := ""
	current, err := r.contents.GetFile(ctx, path)
	switch {
	case err == nil:
		sha = current.SHA
	case errors.Is(err, domain.ErrNotFound):
		log.Info(log.CatGitHub, "creating new data file", "path", path)
	default:
		return fmt.Errorf("read current %s: %w", path, err)
	}

	commit, err := r.contents.PutFile(ctx, path, Encode(doc), CommitMessage(dataFile), sha)
	if err != nil {
		return fmt.Errorf("commit %s: %w", path, err)
	}

	r.mu.Lock()
	r.shas[path] = commit.FileSHA
	r.mu.Unlock()
	return nil
}

// SHA returns the last known blob sha for a site path.
func (r *Repo) SHA(p string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sha, ok := r.shas[r.RepoPath(p)]
	return sha, ok
}
