// Package loader turns a site's manifest into an ordered list of editable
// sections and runs the open/edit/save lifecycle of each one.
package loader

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/almostacms/almostacms/internal/pubsub"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/site"
)

// Loader reads a site through a Source and resolves its sections against a
// registry. Sessions it creates save through the Persister.
type Loader struct {
	lookup    sections.Lookup
	src       site.Source
	persister site.Persister
	tracer    trace.Tracer
	events    *pubsub.Broker[StateChange]
}

// Option configures a Loader.
type Option func(*Loader)

// WithPersister sets where sessions save. Without one, Save fails.
func WithPersister(p site.Persister) Option {
	return func(l *Loader) { l.persister = p }
}

// WithTracer records section.load and section.save spans.
func WithTracer(t trace.Tracer) Option {
	return func(l *Loader) {
		if t != nil {
			l.tracer = t
		}
	}
}

// WithEvents publishes session state changes and edits on b.
func WithEvents(b *pubsub.Broker[StateChange]) Option {
	return func(l *Loader) { l.events = b }
}

// New creates a Loader.
func New(lookup sections.Lookup, src site.Source, opts ...Option) *Loader {
	l := &Loader{
		lookup: lookup,
		src:    src,
		tracer: noop.NewTracerProvider().Tracer("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source returns the site source the loader reads from.
func (l *Loader) Source() site.Source { return l.src }
