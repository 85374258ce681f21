package editor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/pubsub"
	"github.com/almostacms/almostacms/internal/sections/catalog"
	"github.com/almostacms/almostacms/internal/sections/loader"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/watcher"
)

const heroDoc = `{"headline":"Ship faster","published":false,"tags":["a","b"]}`

// Rows of heroDoc in display order.
const (
	rowHeadline = iota
	rowPublished
	rowTags
	rowTag1
	rowTag2
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

type testSite struct {
	root string
	cfg  Config
}

func newTestSite(t *testing.T, files map[string]string, ids ...string) *testSite {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, "data", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	svc, err := catalog.NewService("")
	require.NoError(t, err)
	dir := site.NewDir(root)
	l := loader.New(svc.Registry(), dir, loader.WithPersister(dir))

	var secs []loader.LoadedSection
	for i, id := range ids {
		def, ok := svc.Registry().Resolve(id)
		require.True(t, ok, id)
		secs = append(secs, loader.LoadedSection{
			SectionConfig: site.SectionConfig{ID: id, DataFile: id + ".json", Label: def.Name(), Order: i},
			Definition:    def,
		})
	}
	return &testSite{root: root, cfg: Config{Loader: l, Sections: secs, ConfirmRemove: true}}
}

func (s *testSite) read(t *testing.T, name string) content.Value {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.root, "data", name))
	require.NoError(t, err)
	return content.MustParse(string(data))
}

// drive feeds msg to the model and then runs the resulting commands
// synchronously, feeding their messages back in. Commands that do not return
// quickly (spinner ticks, toast timers) are abandoned.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	return runCmd(t, m, cmd)
}

func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case loadedMsg, savedMsg, draftSavedMsg, settingSavedMsg, initToastMsg:
			m = drive(t, m, msg)
		}
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(50 * time.Millisecond):
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEscape}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		case "ctrl+r":
			msg = tea.KeyMsg{Type: tea.KeyCtrlR}
		case "ctrl+d":
			msg = tea.KeyMsg{Type: tea.KeyCtrlD}
		case "ctrl+u":
			msg = tea.KeyMsg{Type: tea.KeyCtrlU}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m = drive(t, m, msg)
	}
	return m
}

// opened returns a model with the first section loaded and the form focused.
func opened(t *testing.T, s *testSite) Model {
	t.Helper()
	m := New(s.cfg)
	t.Cleanup(m.Close)
	m = drive(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = press(t, m, "enter")
	require.Equal(t, loader.StateReady, m.Session().State())
	require.Equal(t, focusForm, m.focus)
	return m
}

func TestOpen_LoadsSectionIntoForm(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)

	assert.Equal(t, "hero", m.Session().ID())
	assert.True(t, content.Equal(content.MustParse(heroDoc), m.Form().Value()))
	assert.Len(t, m.rows(), 5)

	view := m.View()
	assert.Contains(t, view, "Headline:")
	assert.Contains(t, view, "Ship faster")
	assert.Contains(t, view, "[ ] Published")
}

func TestEditTextField_SaveWritesFile(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)

	m = press(t, m, "enter", "ctrl+u", "Build", "enter")
	assert.False(t, m.editing)
	assert.True(t, m.Session().Dirty())
	assert.Contains(t, m.View(), "modified")

	m = press(t, m, "ctrl+s")
	require.Equal(t, loader.StateReady, m.Session().State())
	assert.False(t, m.Session().Dirty())

	got, err := s.read(t, "hero.json").At(content.P("headline"))
	require.NoError(t, err)
	assert.Equal(t, "Build", got.Str())
	assert.Contains(t, m.toaster.Message(), "Saved /data/hero.json")
}

func TestEditCancel_LeavesDocument(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)

	m = press(t, m, "enter", "xyz", "esc")
	assert.False(t, m.editing)
	assert.False(t, m.Session().Dirty())
}

func TestToggleAndDiscard(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)

	m = press(t, m, "j", "space")
	require.Equal(t, rowPublished, m.field)
	v, _ := m.Session().Draft().At(content.P("published"))
	assert.True(t, v.Bool())

	m = press(t, m, "v")
	assert.Equal(t, overlayDiff, m.overlay)
	assert.Contains(t, m.View(), "+  \"published\": true")
	m = press(t, m, "esc")

	m = press(t, m, "x")
	assert.False(t, m.Session().Dirty())
	v, _ = m.Form().Value().At(content.P("published"))
	assert.False(t, v.Bool(), "the form is re-mounted from the saved document")
}

func TestListItems_AddRemoveMove(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)

	m = press(t, m, "j", "j", "a")
	tags, _ := m.Session().Draft().At(content.P("tags"))
	require.Equal(t, 3, tags.Len())

	// Move the second tag above the first and follow it.
	m.field = rowTag2
	m = press(t, m, "K")
	assert.Equal(t, rowTag1, m.field)
	tags, _ = m.Session().Draft().At(content.P("tags"))
	first, _ := tags.Item(0)
	assert.Equal(t, "b", first.Str())

	m = press(t, m, "d")
	assert.Equal(t, overlayConfirm, m.overlay)
	assert.Contains(t, m.View(), "Remove Tag #1?")
	m = press(t, m, "n")
	tags, _ = m.Session().Draft().At(content.P("tags"))
	assert.Equal(t, 3, tags.Len(), "declined removal keeps the item")

	m = press(t, m, "d", "y")
	assert.Equal(t, overlayNone, m.overlay)
	tags, _ = m.Session().Draft().At(content.P("tags"))
	assert.Equal(t, `["a","a"]`, tags.String())
}

func TestSave_ValidationProblemsNeedForce(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)

	m = press(t, m, "enter", "ctrl+u", "enter")
	m = press(t, m, "ctrl+s")
	require.Len(t, m.problems, 1)
	assert.Equal(t, "headline", m.problems[0].Path.String())
	assert.Contains(t, m.View(), "Headline is required")
	assert.True(t, m.Session().Dirty(), "nothing was saved")

	m = press(t, m, "F")
	assert.False(t, m.Session().Dirty())
	got, _ := s.read(t, "hero.json").At(content.P("headline"))
	assert.Equal(t, "", got.Str())
}

func TestMissingFile_SeedFromExample(t *testing.T) {
	s := newTestSite(t, nil, "faq")
	m := New(s.cfg)
	t.Cleanup(m.Close)
	m = press(t, m, "enter")

	require.Equal(t, loader.StateLoadError, m.Session().State())
	assert.Contains(t, m.toaster.Message(), "press s")
	assert.Contains(t, m.View(), "Could not load faq.json")

	m = press(t, m, "s")
	require.Equal(t, loader.StateReady, m.Session().State())
	assert.True(t, m.Session().Dirty())
	assert.True(t, content.Equal(m.Session().Definition().Example(), m.Form().Value()))

	m = press(t, m, "ctrl+s")
	got := s.read(t, "faq.json")
	title, _ := got.At(content.P("sectionTitle"))
	assert.Equal(t, "Frequently Asked Questions", title.Str())
}

func TestSwitchAwayFromDirty_NeedsSecondEnter(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc, "faq.json": `{"sectionTitle":"Q"}`}, "hero", "faq")
	m := opened(t, s)
	m = press(t, m, "j", "space", "esc", "j")
	require.Equal(t, focusSidebar, m.focus)
	require.Equal(t, 1, m.cursor)

	m = press(t, m, "enter")
	assert.Equal(t, "hero", m.Session().ID())
	assert.Contains(t, m.toaster.Message(), "unsaved changes")

	m = press(t, m, "enter")
	assert.Equal(t, "faq", m.Session().ID())
	assert.Equal(t, loader.StateReady, m.Session().State())
}

func TestReloadRefusedWhenDirty(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)

	m = press(t, m, "j", "space", "ctrl+r")
	assert.True(t, m.Session().Dirty())
	assert.Contains(t, m.toaster.Message(), "before reloading")
}

func TestFileChange_ReloadsCleanSession(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	broker := pubsub.NewBroker[watcher.Change]()
	t.Cleanup(broker.Close)
	s.cfg.Changes = broker
	s.cfg.AutoRefresh = true
	m := opened(t, s)

	require.NoError(t, os.WriteFile(filepath.Join(s.root, "data", "hero.json"), []byte(`{"headline":"Changed"}`), 0o644))
	m = drive(t, m, pubsub.Event[watcher.Change]{
		Type:    pubsub.FileChangedEvent,
		Payload: watcher.Change{Paths: []string{"/data/hero.json"}},
	})

	assert.Equal(t, loader.StateReady, m.Session().State())
	assert.Equal(t, `{"headline":"Changed"}`, m.Form().Value().String())
	assert.Equal(t, "Reloaded hero.json", m.toaster.Message())

	// Other files are ignored.
	m = drive(t, m, pubsub.Event[watcher.Change]{
		Type:    pubsub.FileChangedEvent,
		Payload: watcher.Change{Paths: []string{"/data/faq.json"}},
	})
	assert.Equal(t, "Reloaded hero.json", m.toaster.Message())
}

func TestFileChange_KeepsDirtyEdits(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := opened(t, s)
	m = press(t, m, "j", "space")

	m = drive(t, m, pubsub.Event[watcher.Change]{
		Type:    pubsub.FileChangedEvent,
		Payload: watcher.Change{Paths: []string{"/data/hero.json"}},
	})
	assert.True(t, m.Session().Dirty())
	assert.Contains(t, m.toaster.Message(), "keeping your edits")
}

type recordingDrafts struct {
	mu   sync.Mutex
	docs map[string]content.Value
}

func (r *recordingDrafts) SaveDraft(_ context.Context, siteKey, sectionID string, doc content.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[siteKey+"/"+sectionID] = doc
	return nil
}

func TestEdits_AutosaveDrafts(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	store := &recordingDrafts{docs: map[string]content.Value{}}
	s.cfg.Drafts = store
	s.cfg.SiteKey = "local"
	m := opened(t, s)

	press(t, m, "j", "space")

	store.mu.Lock()
	defer store.mu.Unlock()
	doc, ok := store.docs["local/hero"]
	require.True(t, ok)
	v, _ := doc.At(content.P("published"))
	assert.True(t, v.Bool())
}

func TestToggleDescriptions_PersistsSetting(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ui:\n  show_descriptions: true # sidebar\n"), 0o600))
	s.cfg.ShowDescriptions = true
	s.cfg.ConfigPath = cfgPath

	m := New(s.cfg)
	t.Cleanup(m.Close)
	assert.Contains(t, m.View(), "Main headline")

	m = press(t, m, "D")
	assert.NotContains(t, m.View(), "Main headline")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "show_descriptions: false # sidebar")
}

func TestOverlays(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := New(s.cfg)
	t.Cleanup(m.Close)

	m = press(t, m, "?")
	assert.Equal(t, overlayHelp, m.overlay)
	assert.Contains(t, m.View(), "start from example")
	m = press(t, m, "?")
	assert.Equal(t, overlayNone, m.overlay)

	m = press(t, m, "v")
	assert.Equal(t, overlayNone, m.overlay, "no session means nothing to diff")

	m = press(t, m, "i")
	assert.Equal(t, overlayInfo, m.overlay)
	assert.Contains(t, m.View(), "hero.json")
}

func TestInitShowsWarnings(t *testing.T) {
	s := newTestSite(t, nil, "hero")
	s.cfg.Warnings = []error{assert.AnError}
	m := New(s.cfg)
	t.Cleanup(m.Close)

	m = runCmd(t, m, m.Init())
	assert.True(t, m.toaster.Visible())
	assert.Equal(t, assert.AnError.Error(), m.toaster.Message())
}

func TestProgram_OpenEditQuit(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": heroDoc}, "hero")
	m := New(s.cfg)
	t.Cleanup(m.Close)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Ship faster"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	tm.Send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	final := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(Model)
	require.NotNil(t, final.Session())
	assert.True(t, final.Session().Dirty())
	v, _ := final.Session().Draft().At(content.P("published"))
	assert.True(t, v.Bool())
}

func TestFieldRow_Rendering(t *testing.T) {
	s := newTestSite(t, map[string]string{"hero.json": `{"homepage":"https://example.com","description":"line one\nline two","count":3}`}, "hero")
	m := opened(t, s)

	view := m.View()
	assert.Contains(t, view, "https://example.com")
	assert.Contains(t, view, "line one⏎line two")
	assert.Contains(t, view, "Count: 3")

	m = press(t, m, "j", "enter")
	assert.True(t, m.multiline)
	m = press(t, m, "ctrl+d")
	assert.False(t, m.editing)
	assert.True(t, strings.Contains(m.View(), "line one⏎line two"))
}
