package loader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/mocks"
	"github.com/almostacms/almostacms/internal/pubsub"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/sections/loader"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/tracing"
)

const heroDoc = `{"headline":"Ship faster","cta":{"text":"Go","url":"/start"}}`

type fixture struct {
	src       *mocks.MockSource
	persister *mocks.MockPersister
	loader    *loader.Loader
	reg       *sections.Registry
}

func newFixture(t *testing.T, opts ...loader.Option) *fixture {
	t.Helper()
	f := &fixture{
		src:       mocks.NewMockSource(t),
		persister: mocks.NewMockPersister(t),
		reg:       testRegistry(t),
	}
	opts = append([]loader.Option{loader.WithPersister(f.persister)}, opts...)
	f.loader = loader.New(f.reg, f.src, opts...)
	return f
}

func (f *fixture) session(t *testing.T, id string) *loader.Session {
	t.Helper()
	def, _ := f.reg.Resolve(id)
	return f.loader.Session(loader.LoadedSection{
		SectionConfig: site.SectionConfig{ID: id, DataFile: id + ".json", Label: id},
		Definition:    def,
	})
}

func (f *fixture) opened(t *testing.T) *loader.Session {
	t.Helper()
	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return([]byte(heroDoc), nil).Once()
	s := f.session(t, "hero")
	require.NoError(t, s.Open(context.Background()))
	return s
}

func TestSession_OpenReady(t *testing.T) {
	f := newFixture(t)
	s := f.opened(t)

	assert.Equal(t, loader.StateReady, s.State())
	assert.NoError(t, s.Err())
	assert.Equal(t, "generic", s.Editor().Name())
	assert.True(t, content.Equal(content.MustParse(heroDoc), s.Draft()))
	assert.True(t, content.Equal(s.Saved(), s.Draft()))
	assert.False(t, s.Dirty())
}

func TestSession_OpenFailures(t *testing.T) {
	t.Run("unregistered section", func(t *testing.T) {
		f := newFixture(t)
		s := f.session(t, "pricing")
		err := s.Open(context.Background())
		require.Error(t, err)
		assert.Equal(t, loader.StateLoadError, s.State())
		assert.True(t, domain.IsKind(err, domain.KindUnknownSection))
		assert.Nil(t, s.Editor())
	})

	t.Run("fetch failure", func(t *testing.T) {
		f := newFixture(t)
		f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return(nil, errors.New("connection reset")).Once()
		s := f.session(t, "hero")
		err := s.Open(context.Background())
		assert.True(t, domain.IsKind(err, domain.KindLoad))
		assert.ErrorContains(t, err, "failed to load hero.json")
		assert.Equal(t, loader.StateLoadError, s.State())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		f := newFixture(t)
		f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return([]byte(`{"headline":`), nil).Once()
		s := f.session(t, "hero")
		err := s.Open(context.Background())
		assert.True(t, domain.IsKind(err, domain.KindLoad))
		assert.ErrorContains(t, err, "invalid JSON in hero.json")
	})

	t.Run("editor loader failure", func(t *testing.T) {
		f := newFixture(t)
		def, err := sections.NewDefinition("hero").Name("Hero").Category(sections.CategoryLandingPage).
			Editor(func(context.Context) (sections.Editor, error) { return nil, errors.New("bundle missing") }).
			Build()
		require.NoError(t, err)
		require.NoError(t, f.reg.Register(def))

		s := f.session(t, "hero")
		err = s.Open(context.Background())
		assert.True(t, domain.IsKind(err, domain.KindLoad))
		assert.ErrorContains(t, err, "bundle missing")
	})
}

func TestSession_ReloadAfterLoadError(t *testing.T) {
	f := newFixture(t)
	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return(nil, errors.New("timeout")).Once()
	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return([]byte(heroDoc), nil).Once()

	s := f.session(t, "hero")
	require.Error(t, s.Open(context.Background()))
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, loader.StateReady, s.State())
	assert.NoError(t, s.Err())
}

func TestSession_EditAndDiscard(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, "hero")
	require.ErrorIs(t, s.Edit(content.MustParse(`{}`)), loader.ErrInvalidState)

	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return([]byte(heroDoc), nil).Once()
	require.NoError(t, s.Open(context.Background()))

	edited, err := s.Draft().Set(content.P("headline"), content.StringValue("Ship slower"))
	require.NoError(t, err)
	require.NoError(t, s.Edit(edited))
	assert.True(t, s.Dirty())

	require.NoError(t, s.Edit(content.MustParse(heroDoc)))
	assert.False(t, s.Dirty(), "editing back to the saved document is clean")

	require.NoError(t, s.Edit(edited))
	require.NoError(t, s.Discard())
	assert.False(t, s.Dirty())
	assert.True(t, content.Equal(s.Saved(), s.Draft()))
}

func TestSession_EditLargeIntegerIsDirty(t *testing.T) {
	f := newFixture(t)
	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").
		Return([]byte(`{"headline":"x","id":9007199254740993}`), nil).Once()
	s := f.session(t, "hero")
	require.NoError(t, s.Open(context.Background()))

	require.NoError(t, s.Edit(content.MustParse(`{"headline":"x","id":9007199254740992}`)))
	assert.True(t, s.Dirty(), "integers past 2^53 are distinct")
}

func TestSession_SaveSuccess(t *testing.T) {
	f := newFixture(t)
	s := f.opened(t)

	edited := content.MustParse(`{"headline":"New"}`)
	require.NoError(t, s.Edit(edited))

	f.persister.EXPECT().Save(mock.Anything, "hero.json", mock.Anything).
		RunAndReturn(func(_ context.Context, _ string, doc content.Value) error {
			assert.True(t, content.Equal(edited, doc))
			return nil
		}).Once()

	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, loader.StateReady, s.State())
	assert.False(t, s.Dirty())
	assert.True(t, content.Equal(edited, s.Saved()))
}

func TestSession_SaveFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	s := f.opened(t)

	edited := content.MustParse(`{"headline":"Unsaved"}`)
	require.NoError(t, s.Edit(edited))

	f.persister.EXPECT().Save(mock.Anything, "hero.json", mock.Anything).
		Return(&domain.UpstreamError{Service: "github", Status: 403, Description: "Permission denied. Check repository access."}).Once()

	err := s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindSave))
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, 403, up.Status)

	assert.Equal(t, loader.StateSaveError, s.State())
	assert.True(t, s.Dirty())
	assert.True(t, content.Equal(edited, s.Draft()))
	assert.False(t, content.Equal(edited, s.Saved()))

	// Editing is still allowed after a failed save, and a retry can succeed.
	require.NoError(t, s.Edit(edited))
	f.persister.EXPECT().Save(mock.Anything, "hero.json", mock.Anything).Return(nil).Once()
	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, loader.StateReady, s.State())
}

func TestSession_DiscardClearsSaveError(t *testing.T) {
	f := newFixture(t)
	s := f.opened(t)
	require.NoError(t, s.Edit(content.MustParse(`{"headline":"x"}`)))
	f.persister.EXPECT().Save(mock.Anything, "hero.json", mock.Anything).Return(errors.New("disk full")).Once()
	require.Error(t, s.Save(context.Background()))

	require.NoError(t, s.Discard())
	assert.Equal(t, loader.StateReady, s.State())
	assert.NoError(t, s.Err())
	assert.False(t, s.Dirty())
}

func TestSession_OneSaveInFlight(t *testing.T) {
	f := newFixture(t)
	s := f.opened(t)

	ticket, err := s.BeginSave()
	require.NoError(t, err)
	assert.Equal(t, loader.StateSaving, s.State())

	_, err = s.BeginSave()
	require.ErrorIs(t, err, loader.ErrSaveInProgress)
	require.ErrorIs(t, s.Edit(content.MustParse(`{}`)), loader.ErrSaveInProgress)
	_, err = s.StartLoad()
	require.ErrorIs(t, err, loader.ErrSaveInProgress)

	f.persister.EXPECT().Save(mock.Anything, "hero.json", mock.Anything).Return(nil).Once()
	require.True(t, s.FinishSave(s.Persist(context.Background(), ticket)))
	assert.Equal(t, loader.StateReady, s.State())
}

func TestSession_StaleLoadIsDropped(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, "hero")

	first, err := s.StartLoad()
	require.NoError(t, err)
	second, err := s.StartLoad()
	require.NoError(t, err)
	require.Greater(t, second.Gen, first.Gen)

	stale := loader.LoadResult{Gen: first.Gen, Doc: content.MustParse(`{"headline":"old"}`)}
	assert.False(t, s.Complete(stale))
	assert.Equal(t, loader.StateLoading, s.State())

	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return([]byte(heroDoc), nil).Once()
	assert.True(t, s.Complete(s.Fetch(context.Background(), second)))
	assert.Equal(t, loader.StateReady, s.State())
	assert.Equal(t, "Ship faster", mustGet(t, s.Draft(), "headline"))
}

func TestSession_CloseDropsInFlightWork(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, "hero")

	ticket, err := s.StartLoad()
	require.NoError(t, err)
	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return([]byte(heroDoc), nil).Once()
	result := s.Fetch(context.Background(), ticket)

	s.Close()
	assert.False(t, s.Complete(result))
	assert.Equal(t, loader.StateIdle, s.State())
}

func TestSession_SeedFromExample(t *testing.T) {
	f := newFixture(t)
	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").
		Return(nil, errors.Join(site.ErrNotFound, errors.New("hero.json"))).Once()

	s := f.session(t, "hero")
	require.Error(t, s.Open(context.Background()))
	require.NoError(t, s.Seed())

	assert.Equal(t, loader.StateReady, s.State())
	assert.True(t, s.Dirty())
	assert.Equal(t, "Example", mustGet(t, s.Draft(), "headline"))

	require.ErrorIs(t, s.Seed(), loader.ErrInvalidState)
}

func TestSession_SeedRequiresMissingFile(t *testing.T) {
	f := newFixture(t)
	f.src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return(nil, errors.New("500")).Once()
	s := f.session(t, "hero")
	require.Error(t, s.Open(context.Background()))
	require.ErrorIs(t, s.Seed(), loader.ErrInvalidState)
}

func TestSession_NoPersister(t *testing.T) {
	src := mocks.NewMockSource(t)
	src.EXPECT().Fetch(mock.Anything, "/data/hero.json").Return([]byte(heroDoc), nil).Once()
	reg := testRegistry(t)
	def, _ := reg.Resolve("hero")
	s := loader.New(reg, src).Session(loader.LoadedSection{
		SectionConfig: site.SectionConfig{ID: "hero", DataFile: "hero.json"},
		Definition:    def,
	})
	require.NoError(t, s.Open(context.Background()))
	require.ErrorIs(t, s.Save(context.Background()), loader.ErrNoPersister)
	assert.Equal(t, loader.StateSaveError, s.State())
}

func TestSession_PublishesTransitions(t *testing.T) {
	broker := pubsub.NewBroker[loader.StateChange]()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	f := newFixture(t, loader.WithEvents(broker))
	s := f.opened(t)
	require.NoError(t, s.Edit(content.MustParse(`{"headline":"x"}`)))
	f.persister.EXPECT().Save(mock.Anything, "hero.json", mock.Anything).Return(nil).Once()
	require.NoError(t, s.Save(context.Background()))

	type step struct {
		kind pubsub.EventType
		to   loader.State
	}
	want := []step{
		{pubsub.StateChangedEvent, loader.StateLoading},
		{pubsub.StateChangedEvent, loader.StateReady},
		{pubsub.UpdatedEvent, loader.StateReady},
		{pubsub.StateChangedEvent, loader.StateSaving},
		{pubsub.StateChangedEvent, loader.StateReady},
	}
	for i, w := range want {
		select {
		case ev := <-events:
			assert.Equal(t, w.kind, ev.Type, "event %d", i)
			assert.Equal(t, w.to, ev.Payload.To, "event %d", i)
			assert.Equal(t, "hero", ev.Payload.Section)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestSession_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	f := newFixture(t, loader.WithTracer(tp.Tracer("test")))
	s := f.opened(t)
	f.persister.EXPECT().Save(mock.Anything, "hero.json", mock.Anything).Return(nil).Once()
	require.NoError(t, s.Save(context.Background()))

	var names []string
	for _, sp := range sr.Ended() {
		names = append(names, sp.Name())
	}
	assert.Equal(t, []string{tracing.SpanSectionLoad, tracing.SpanSectionSave}, names)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "load-error", loader.StateLoadError.String())
	assert.Equal(t, "unknown", loader.State(42).String())
	assert.True(t, loader.StateSaveError.Editable())
	assert.False(t, loader.StateSaving.Editable())
}

func mustGet(t *testing.T, doc content.Value, key string) string {
	t.Helper()
	v, ok := doc.Get(key)
	require.True(t, ok)
	return v.Str()
}
