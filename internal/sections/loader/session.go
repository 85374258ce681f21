package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/pubsub"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/tracing"
)

var (
	// ErrSaveInProgress rejects a save, reload or edit while a save runs.
	ErrSaveInProgress = domain.ErrSaveInProgress
	// ErrInvalidState rejects an operation the current state does not allow.
	ErrInvalidState = domain.ErrInvalidState
	// ErrNoPersister is the save error of a loader built without one.
	ErrNoPersister = errors.New("no persister configured")
	// ErrNoExample is returned by Seed for sections without an example.
	ErrNoExample = errors.New("section has no example document")
)

// Session is the open/edit/save lifecycle of one section.
//
// The synchronous methods Open, Reload and Save suit the CLI. The Bubble Tea
// UI uses the split form instead: StartLoad and BeginSave run on the update
// loop, Fetch and Persist run inside a tea.Cmd, and Complete and FinishSave
// apply the result back on the update loop. Every load and save carries the
// generation it was started in; results from an older generation, or from
// before a Close, are dropped.
type Session struct {
	section   LoadedSection
	lookup    sections.Lookup
	src       site.Source
	persister site.Persister
	tracer    trace.Tracer
	events    *pubsub.Broker[StateChange]

	mu     sync.Mutex
	gen    uint64
	state  State
	err    error
	editor sections.Editor
	saved  content.Value
	draft  content.Value
	dirty  bool
}

// Session creates an idle session for a loaded section.
func (l *Loader) Session(s LoadedSection) *Session {
	return &Session{
		section:   s,
		lookup:    l.lookup,
		src:       l.src,
		persister: l.persister,
		tracer:    l.tracer,
		events:    l.events,
	}
}

// LoadTicket identifies one load attempt.
type LoadTicket struct {
	Gen uint64
}

// LoadResult is what Fetch produced for a ticket.
type LoadResult struct {
	Gen    uint64
	Editor sections.Editor
	Doc    content.Value
	Err    error
}

// SaveTicket identifies one save attempt and carries the document to store.
type SaveTicket struct {
	Gen uint64
	Doc content.Value
}

// SaveResult is what Persist produced for a ticket.
type SaveResult struct {
	Gen uint64
	Doc content.Value
	Err error
}

func (s *Session) ID() string                       { return s.section.ID }
func (s *Session) DataFile() string                 { return s.section.DataFile }
func (s *Session) Label() string                    { return s.section.Label }
func (s *Session) Section() LoadedSection           { return s.section }
func (s *Session) Definition() *sections.Definition { return s.section.Definition }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error behind LoadError or SaveError, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Editor returns the loaded editor, nil before the first successful load.
func (s *Session) Editor() sections.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// Draft returns the document being edited.
func (s *Session) Draft() content.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Saved returns the last-known-good document.
func (s *Session) Saved() content.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Dirty reports whether the draft differs from the saved document.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Generation returns the current load generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// StartLoad enters Loading and returns the ticket for the new attempt. It
// fails with ErrSaveInProgress while a save runs.
func (s *Session) StartLoad() (LoadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSaving {
		return LoadTicket{}, ErrSaveInProgress
	}
	s.gen++
	s.err = nil
	s.transition(StateLoading)
	return LoadTicket{Gen: s.gen}, nil
}

// Fetch resolves the definition, loads the editor, and fetches and parses
// the data file. It does not touch session state, so it is safe to run off
// the UI goroutine.
func (s *Session) Fetch(ctx context.Context, t LoadTicket) LoadResult {
	ctx, span := s.tracer.Start(ctx, tracing.SpanSectionLoad, trace.WithAttributes(
		attribute.String(tracing.AttrSectionID, s.section.ID),
		attribute.String(tracing.AttrSectionFile, s.section.DataFile),
	))
	defer span.End()

	res := LoadResult{Gen: t.Gen}
	res.Editor, res.Doc, res.Err = s.fetch(ctx)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

func (s *Session) fetch(ctx context.Context) (sections.Editor, content.Value, error) {
	id := s.section.ID
	if !s.lookup.IsRegistered(id) {
		return nil, content.Value{}, domain.UnknownSectionError("open", id)
	}
	editor, err := s.lookup.LoadEditor(ctx, id)
	if err != nil {
		if _, ok := domain.KindOf(err); ok {
			return nil, content.Value{}, err
		}
		return nil, content.Value{}, domain.LoadError("load editor", id, err)
	}
	data, err := s.src.Fetch(ctx, site.DataPath(s.section.DataFile))
	if err != nil {
		return editor, content.Value{}, domain.LoadError("fetch", id, fmt.Errorf("failed to load %s: %w", s.section.DataFile, err))
	}
	doc, err := content.Parse(data)
	if err != nil {
		return editor, content.Value{}, domain.LoadError("parse", id, fmt.Errorf("invalid JSON in %s: %w", s.section.DataFile, err))
	}
	return editor, doc, nil
}

// Complete applies a load result. It reports false, and changes nothing, when
// the result is stale.
func (s *Session) Complete(r LoadResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Gen != s.gen || s.state != StateLoading {
		log.Debug(log.CatSections, "dropping stale load", "section", s.section.ID, "gen", r.Gen, "current", s.gen)
		return false
	}
	if r.Editor != nil {
		s.editor = r.Editor
	}
	if r.Err != nil {
		s.err = r.Err
		log.ErrorErr(log.CatSections, "section load failed", r.Err, "section", s.section.ID)
		s.transition(StateLoadError)
		return true
	}
	s.saved = r.Doc
	s.draft = r.Doc
	s.dirty = false
	s.err = nil
	log.Debug(log.CatSections, "section loaded", "section", s.section.ID, "editor", r.Editor.Name())
	s.transition(StateReady)
	return true
}

// Open loads the section synchronously.
func (s *Session) Open(ctx context.Context) error {
	t, err := s.StartLoad()
	if err != nil {
		return err
	}
	r := s.Fetch(ctx, t)
	if s.Complete(r) {
		return r.Err
	}
	return nil
}

// Reload re-enters Loading and fetches again, discarding any draft.
func (s *Session) Reload(ctx context.Context) error {
	return s.Open(ctx)
}

// Edit replaces the draft. It is allowed in Ready and SaveError.
func (s *Session) Edit(doc content.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEditable("edit"); err != nil {
		return err
	}
	s.draft = doc
	s.dirty = !content.Equal(doc, s.saved)
	s.publish(pubsub.UpdatedEvent, StateChange{
		Section: s.section.ID,
		From:    s.state,
		To:      s.state,
		Dirty:   s.dirty,
		Draft:   doc,
	})
	return nil
}

// Discard resets the draft to the saved document. A failed save is
// forgotten and the session returns to Ready.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEditable("discard"); err != nil {
		return err
	}
	s.draft = s.saved
	s.dirty = false
	s.err = nil
	s.transition(StateReady)
	return nil
}

// Seed replaces a missing document with the definition's example. It is
// allowed only after a load failed because the data file does not exist.
// The seeded draft is dirty until saved.
func (s *Session) Seed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoadError || !errors.Is(s.err, site.ErrNotFound) || s.editor == nil {
		return fmt.Errorf("%w: seed requires a missing data file", ErrInvalidState)
	}
	def := s.section.Definition
	if def == nil || def.Example().IsNull() {
		return ErrNoExample
	}
	s.saved = content.NullValue()
	s.draft = def.Example().Clone()
	s.dirty = true
	s.err = nil
	log.Info(log.CatSections, "seeded section from example", "section", s.section.ID)
	s.transition(StateReady)
	return nil
}

// Validate runs the editor's checks on the draft.
func (s *Session) Validate() []sections.Problem {
	s.mu.Lock()
	editor, draft := s.editor, s.draft
	s.mu.Unlock()
	if editor == nil {
		return nil
	}
	return editor.Validate(draft)
}

// BeginSave enters Saving and returns the draft to persist.
func (s *Session) BeginSave() (SaveTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEditable("save"); err != nil {
		return SaveTicket{}, err
	}
	s.err = nil
	s.transition(StateSaving)
	return SaveTicket{Gen: s.gen, Doc: s.draft}, nil
}

// Persist hands the ticket's document to the persister. Like Fetch it does
// not touch session state.
func (s *Session) Persist(ctx context.Context, t SaveTicket) SaveResult {
	ctx, span := s.tracer.Start(ctx, tracing.SpanSectionSave, trace.WithAttributes(
		attribute.String(tracing.AttrSectionID, s.section.ID),
		attribute.String(tracing.AttrSectionFile, s.section.DataFile),
	))
	defer span.End()

	res := SaveResult{Gen: t.Gen, Doc: t.Doc}
	switch {
	case s.persister == nil:
		res.Err = ErrNoPersister
	default:
		res.Err = s.persister.Save(ctx, s.section.DataFile, t.Doc)
	}
	if res.Err != nil {
		res.Err = domain.SaveError("save", s.section.ID, res.Err)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

// FinishSave applies a save result. On success the saved document becomes
// the draft that was persisted. On failure the draft is kept and the session
// enters SaveError. Stale results report false.
func (s *Session) FinishSave(r SaveResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Gen != s.gen || s.state != StateSaving {
		log.Debug(log.CatSections, "dropping stale save", "section", s.section.ID, "gen", r.Gen, "current", s.gen)
		return false
	}
	if r.Err != nil {
		s.err = r.Err
		log.ErrorErr(log.CatSections, "section save failed", r.Err, "section", s.section.ID)
		s.transition(StateSaveError)
		return true
	}
	s.saved = r.Doc
	s.dirty = !content.Equal(s.draft, r.Doc)
	log.Info(log.CatSections, "section saved", "section", s.section.ID, "file", s.section.DataFile)
	s.transition(StateReady)
	return true
}

// Save persists the draft synchronously.
func (s *Session) Save(ctx context.Context) error {
	t, err := s.BeginSave()
	if err != nil {
		return err
	}
	r := s.Persist(ctx, t)
	if s.FinishSave(r) {
		return r.Err
	}
	return nil
}

// Close returns the session to Idle. In-flight loads and saves become stale.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.err = nil
	s.transition(StateIdle)
}

func (s *Session) requireEditable(op string) error {
	switch {
	case s.state == StateSaving:
		return ErrSaveInProgress
	case !s.state.Editable():
		return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s.state)
	}
	return nil
}

// transition must be called with mu held.
func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	if from == to {
		return
	}
	s.publish(pubsub.StateChangedEvent, StateChange{
		Section: s.section.ID,
		From:    from,
		To:      to,
		Dirty:   s.dirty,
		Err:     s.err,
	})
}

func (s *Session) publish(t pubsub.EventType, c StateChange) {
	if s.events != nil {
		s.events.Publish(t, c)
	}
}
