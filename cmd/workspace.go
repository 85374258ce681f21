package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/almostacms/almostacms/internal/auth"
	"github.com/almostacms/almostacms/internal/config"
	"github.com/almostacms/almostacms/internal/drafts"
	"github.com/almostacms/almostacms/internal/flags"
	"github.com/almostacms/almostacms/internal/github"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/paths"
	"github.com/almostacms/almostacms/internal/pubsub"
	"github.com/almostacms/almostacms/internal/sections/catalog"
	"github.com/almostacms/almostacms/internal/sections/loader"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/tracing"
)

// workspace is everything the editor and the scripting commands share: the
// section catalog, the site source and persister, the draft store and the
// tracer.
type workspace struct {
	cfg     config.Config
	flags   *flags.Registry
	catalog *catalog.Service
	loader  *loader.Loader
	tracing *tracing.Provider
	drafts  *drafts.Store
	events  *pubsub.Broker[loader.StateChange]
	stop    context.CancelFunc

	// siteKey identifies the site in the drafts database.
	siteKey string
	// localRoot is the checkout directory, empty for GitHub-backed sites.
	localRoot string
}

// userSectionsDir holds user-defined section YAML files.
func userSectionsDir() string {
	return filepath.Join(config.ConfigDir(), "sections")
}

func openWorkspace(ctx context.Context, c config.Config) (*workspace, error) {
	ws := &workspace{cfg: c, flags: flags.New(c.Flags)}

	svc, err := catalog.NewService(userSectionsDir())
	if err != nil {
		return nil, fmt.Errorf("loading section catalog: %w", err)
	}
	ws.catalog = svc

	tp, err := tracing.NewProvider(c.TracingConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	ws.tracing = tp

	src, persister, err := ws.openSite()
	if err != nil {
		ws.Close()
		return nil, err
	}

	if c.Drafts.Enabled || ws.flags.Enabled(flags.FlagLocalDrafts) {
		store, err := drafts.Open(ctx, c.DraftsPath())
		if err != nil {
			ws.Close()
			return nil, fmt.Errorf("opening drafts database: %w", err)
		}
		ws.drafts = store
		persister = drafts.NewRecording(persister, store, ws.siteKey)
	}

	ws.events = pubsub.NewBroker[loader.StateChange]()
	watchCtx, stop := context.WithCancel(context.Background())
	ws.stop = stop
	go logStateChanges(ws.events.Subscribe(watchCtx))

	ws.loader = loader.New(svc.Registry(), src,
		loader.WithPersister(persister),
		loader.WithTracer(tp.Tracer()),
		loader.WithEvents(ws.events),
	)
	return ws, nil
}

// logStateChanges writes session transitions to the debug log until the
// subscription ends.
func logStateChanges(ch <-chan pubsub.Event[loader.StateChange]) {
	for ev := range ch {
		c := ev.Payload
		if c.From == c.To {
			continue
		}
		if c.Err != nil {
			log.Debug(log.CatSections, "session state", "section", c.Section, "from", c.From, "to", c.To, "error", c.Err)
			continue
		}
		log.Debug(log.CatSections, "session state", "section", c.Section, "from", c.From, "to", c.To, "dirty", c.Dirty)
	}
}

// openSite picks the configured repository when github-persistence is on,
// then a published site when site.url is set, then the local checkout.
func (ws *workspace) openSite() (site.Source, site.Persister, error) {
	c := ws.cfg
	if !ws.flags.Enabled(flags.FlagGitHubPersistence) {
		if c.Site.URL != "" {
			h := site.NewHTTP(c.Site.URL, nil, site.DefaultHTTPCacheTTL)
			ws.siteKey = "url:" + strings.TrimRight(c.Site.URL, "/")
			log.Info(log.CatSite, "using published site (read-only)", "url", c.Site.URL)
			return h, h, nil
		}
		root := paths.ResolveSiteRoot(c.Site.Root)
		ws.localRoot = root
		ws.siteKey = "local:" + absPath(root)
		dir := site.NewDir(root)
		log.Info(log.CatSite, "using local site", "root", absPath(root))
		return dir, dir, nil
	}

	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return nil, nil, errors.New("github-persistence needs github.owner and github.repo")
	}
	ts, err := auth.NewStore(c.TokenFile()).TokenSource()
	if err != nil {
		return nil, nil, err
	}
	client := github.NewClient(ts, github.Options{
		APIURL: c.GitHub.APIURL,
		Owner:  c.GitHub.Owner,
		Repo:   c.GitHub.Repo,
		Branch: c.GitHub.Branch,
	})
	repoPath := c.GitHub.RepoPath
	if repoPath == "" {
		repoPath = paths.RepoPath(paths.ResolveSiteRoot(c.Site.Root))
	}
	repo := site.NewRepo(client, repoPath)
	ws.siteKey = "github:" + client.Repo()
	log.Info(log.CatSite, "using GitHub site", "repo", client.Repo(), "branch", c.GitHub.Branch, "repo_path", repoPath)
	return repo, repo, nil
}

// loadSections discovers the manifest and resolves its sections. Manifest
// and section warnings are returned together.
func (ws *workspace) loadSections(ctx context.Context) ([]loader.LoadedSection, []error, error) {
	m, warnings, err := ws.loader.Discover(ctx, ws.cfg.Site.BasePath)
	if err != nil {
		return nil, nil, err
	}
	res := ws.loader.LoadSections(ctx, m)
	return res.Sections, append(warnings, res.Warnings...), nil
}

// Close stops the event log, releases the draft store and flushes traces.
func (ws *workspace) Close() {
	if ws.stop != nil {
		ws.stop()
		ws.events.Close()
	}
	if ws.drafts != nil {
		if err := ws.drafts.Close(); err != nil {
			log.ErrorErr(log.CatDrafts, "closing drafts database", err)
		}
	}
	if ws.tracing != nil {
		if err := ws.tracing.Shutdown(context.Background()); err != nil {
			log.ErrorErr(log.CatConfig, "flushing traces", err)
		}
	}
}
