// Package flags reads feature switches from the "flags" config map.
// A Registry is read-only once built; unknown or missing flags are off.
package flags

import (
	"maps"
	"slices"

	"github.com/almostacms/almostacms/internal/log"
)

const (
	// FlagGitHubPersistence saves and reads section data through the GitHub
	// contents API instead of the local checkout.
	FlagGitHubPersistence = "github-persistence"

	// FlagLocalDrafts autosaves unsaved edits to the SQLite draft store and
	// records a revision after each save.
	FlagLocalDrafts = "local-drafts"

	// FlagDeviceProxy serves /device/code and /device/token on the relay.
	FlagDeviceProxy = "device-proxy"
)

// Known lists every flag the binary reads, in display order.
var Known = []string{FlagGitHubPersistence, FlagLocalDrafts, FlagDeviceProxy}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. The map is copied.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: maps.Clone(flags)}
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}
	for _, name := range r.Unknown() {
		log.Warn(log.CatConfig, "Unknown feature flag in config", "flag", name)
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(r.flags), "flags", r.All())
	return r
}

// Enabled reports whether the named flag is on. Nil-safe.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of every configured flag.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}

// Unknown returns configured flag names this binary does not read, sorted.
func (r *Registry) Unknown() []string {
	if r == nil {
		return nil
	}
	var out []string
	for name := range r.flags {
		if !slices.Contains(Known, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
