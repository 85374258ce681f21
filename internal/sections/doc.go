// Package sections is the content schema registry: the catalog of section
// types a site can declare in its manifest.
//
// A Definition carries display metadata, an example document and a deferred
// editor loader. Definitions are built with NewDefinition and are immutable
// once built. The Registry is keyed by id; registering an id again replaces
// the definition but keeps its original position, so listings stay stable
// when a user catalog overrides a built-in section.
//
// A successful editor load is memoized for the life of a Registry; a failed
// load is forgotten so the next LoadEditor call runs the loader again:
//
//	reg := sections.NewRegistry(sections.WithFallbackEditor(generic))
//	_ = reg.Register(hero)
//	ed, err := reg.LoadEditor(ctx, "hero")
//
// This package has no knowledge of files, YAML or HTTP.
package sections
