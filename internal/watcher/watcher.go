// Package watcher reports debounced changes to a site's manifest and data
// files so open sections can refresh themselves.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/pubsub"
)

const (
	manifestName = ".almostacms.json"
	dataDir      = "data"
)

// Change lists the site paths touched during one debounce window, sorted.
// Paths are site-absolute with forward slashes, e.g. "/data/hero.json".
type Change struct {
	Paths []string
}

// Has reports whether p was part of the change.
func (c Change) Has(p string) bool { return slices.Contains(c.Paths, p) }

// Config holds watcher configuration options.
type Config struct {
	SiteRoot    string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(siteRoot string) Config {
	return Config{
		SiteRoot:    siteRoot,
		DebounceDur: 300 * time.Millisecond,
	}
}

// Watcher monitors a site checkout and publishes FileChangedEvent on its
// broker after each quiet period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	debounce  time.Duration
	broker    *pubsub.Broker[Change]
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New creates a watcher for cfg.SiteRoot. Call Start to begin watching.
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.SiteRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving site root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		root:      root,
		debounce:  cfg.DebounceDur,
		broker:    pubsub.NewBroker[Change](),
		done:      make(chan struct{}),
	}, nil
}

// Broker exposes change events, for pubsub tea listeners.
func (w *Watcher) Broker() *pubsub.Broker[Change] { return w.broker }

// Subscribe returns a channel of change events that closes with ctx.
func (w *Watcher) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return w.broker.Subscribe(ctx)
}

// Start watches the site root (for the manifest) and its data directory.
// A data directory created later is picked up when it appears.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.root); err != nil {
		return fmt.Errorf("watching directory %s: %w", w.root, err)
	}
	data := filepath.Join(w.root, dataDir)
	if info, err := os.Stat(data); err == nil && info.IsDir() {
		if err := w.fsWatcher.Add(data); err != nil {
			return fmt.Errorf("watching directory %s: %w", data, err)
		}
	}
	log.Debug(log.CatWatcher, "Watching site", "root", w.root, "debounce", w.debounce)

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop terminates the watcher, waits for its goroutine and closes the broker.
// Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
		w.broker.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.maybeWatchData(event)

			p, relevant := w.sitePath(event)
			if !relevant {
				continue
			}
			pending[p] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			change := Change{Paths: make([]string, 0, len(pending))}
			for p := range pending {
				change.Paths = append(change.Paths, p)
			}
			slices.Sort(change.Paths)
			clear(pending)
			log.Debug(log.CatWatcher, "Site files changed", "paths", strings.Join(change.Paths, ","))
			w.broker.Publish(pubsub.FileChangedEvent, change)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				log.ErrorErr(log.CatWatcher, "Watch error", err)
			}

		case <-w.done:
			return
		}
	}
}

// maybeWatchData adds data/ when it is created after Start.
func (w *Watcher) maybeWatchData(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) || event.Name != filepath.Join(w.root, dataDir) {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if err := w.fsWatcher.Add(event.Name); err != nil {
			log.ErrorErr(log.CatWatcher, "Failed to watch new data directory", err)
		}
	}
}

// sitePath maps an fsnotify event to a site path when it concerns the
// manifest or a data/*.json file.
func (w *Watcher) sitePath(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case rel == manifestName:
	case strings.HasPrefix(rel, dataDir+"/") && strings.Count(rel, "/") == 1 && strings.HasSuffix(rel, ".json"):
	default:
		return "", false
	}
	return "/" + rel, true
}
