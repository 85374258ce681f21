package sections

import "context"

// Lookup is the read side of the Registry that the section loader needs.
// It lets tests substitute a fake catalog.
type Lookup interface {
	// Resolve returns the definition registered under id.
	Resolve(id string) (*Definition, bool)

	// IsRegistered reports whether id has a definition.
	IsRegistered(id string) bool

	// LoadEditor returns the editor for id, memoized once it loads. Unknown
	// ids fail with an unknown-section error; loader failures with a load
	// error, and the next call tries again.
	LoadEditor(ctx context.Context, id string) (Editor, error)
}

// Compile-time check that Registry implements Lookup.
var _ Lookup = (*Registry)(nil)
