package sections

import (
	"context"
	"errors"
	"sync"

	"github.com/almostacms/almostacms/internal/cachemanager"
	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
)

// Registry errors
var (
	// ErrNotFound is the domain-wide not-found sentinel.
	ErrNotFound      = domain.ErrNotFound
	ErrNilDefinition = errors.New("definition cannot be nil")
	ErrNoEditor      = errors.New("no editor available")
)

// editorSlot memoizes one loader call. The loader runs inside once, so
// concurrent LoadEditor calls for the same id share a single invocation.
type editorSlot struct {
	once   sync.Once
	editor Editor
	err    error
}

// Registry holds all section definitions.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]*Definition
	order    []string
	editors  cachemanager.CacheManager[string, *editorSlot]
	fallback Editor
}

// Option configures a Registry.
type Option func(*Registry)

// WithFallbackEditor sets the editor used by definitions without a loader.
func WithFallbackEditor(e Editor) Option {
	return func(r *Registry) { r.fallback = e }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		defs:    make(map[string]*Definition),
		editors: cachemanager.NewInMemoryCacheManager[string, *editorSlot]("section-editors", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts def, replacing any definition with the same id. A
// replaced id keeps its original position and forgets its memoized editor.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return ErrNilDefinition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.id]; exists {
		log.Debug(log.CatSections, "section re-registered", "id", def.id, "source", def.source.String())
		_ = r.editors.Delete(context.Background(), def.id)
	} else {
		r.order = append(r.order, def.id)
	}
	r.defs[def.id] = def
	return nil
}

// Resolve returns the definition registered under id.
func (r *Registry) Resolve(id string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// IsRegistered reports whether id has a definition.
func (r *Registry) IsRegistered(id string) bool {
	_, ok := r.Resolve(id)
	return ok
}

// All returns every definition in registration order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// ListByCategory returns the definitions in category c, in registration
// order.
func (r *Registry) ListByCategory(c Category) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Definition, 0)
	for _, id := range r.order {
		if def := r.defs[id]; def.category == c {
			out = append(out, def)
		}
	}
	return out
}

// Categories returns every known category in display order.
func (r *Registry) Categories() []CategoryInfo {
	return Categories()
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// LoadEditor returns the editor for id. A successful load is kept and shared
// by later calls; a failed one is dropped so the next call runs the loader
// again. Callers waiting on the same attempt all see its result.
func (r *Registry) LoadEditor(ctx context.Context, id string) (Editor, error) {
	r.mu.RLock()
	def, ok := r.defs[id]
	fallback := r.fallback
	var slot *editorSlot
	if ok {
		slot, _ = r.editors.GetOrAdd(ctx, id, &editorSlot{}, cachemanager.NoExpiration)
	}
	r.mu.RUnlock()

	if !ok {
		return nil, domain.UnknownSectionError("load editor", id)
	}

	slot.once.Do(func() {
		if def.loader == nil {
			if fallback == nil {
				slot.err = domain.LoadError("load editor", id, ErrNoEditor)
				return
			}
			slot.editor = fallback
			return
		}

		ed, err := def.loader(ctx)
		switch {
		case err != nil:
			slot.err = domain.LoadError("load editor", id, err)
		case ed == nil:
			slot.err = domain.LoadError("load editor", id, ErrNoEditor)
		default:
			slot.editor = ed
		}
		if slot.err != nil {
			log.ErrorErr(log.CatSections, "editor failed to load", slot.err, "id", id)
			return
		}
		log.Debug(log.CatSections, "editor loaded", "id", id, "editor", ed.Name())
	})
	if slot.err != nil {
		r.dropSlot(ctx, id, slot)
	}
	return slot.editor, slot.err
}

// dropSlot forgets a failed slot unless Register already replaced it.
func (r *Registry) dropSlot(ctx context.Context, id string, slot *editorSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.editors.Get(ctx, id); ok && cur == slot {
		_ = r.editors.Delete(ctx, id)
	}
}
