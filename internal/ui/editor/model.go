// Package editor is the terminal content editor: a section sidebar on the
// left and the open section's form on the right.
//
// Loads and saves run as tea.Cmds through the split Session API
// (StartLoad/Fetch/Complete and BeginSave/Persist/FinishSave) so the UI
// goroutine only ever applies results. Results from superseded attempts are
// dropped by the session itself.
package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/almostacms/almostacms/internal/config"
	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/form"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/pubsub"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/sections/loader"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/ui/styles"
	"github.com/almostacms/almostacms/internal/ui/toaster"
	"github.com/almostacms/almostacms/internal/watcher"
)

// DraftStore receives autosaved drafts. *drafts.Store satisfies it.
type DraftStore interface {
	SaveDraft(ctx context.Context, site, sectionID string, doc content.Value) error
}

// Config wires the editor to the rest of the application.
type Config struct {
	Loader   *loader.Loader
	Sections []loader.LoadedSection
	// Warnings from manifest discovery and section loading, shown once.
	Warnings []error

	// Changes delivers watcher events. Nil disables auto-refresh.
	Changes     *pubsub.Broker[watcher.Change]
	AutoRefresh bool

	// Drafts, when set, receives every edit.
	Drafts  DraftStore
	SiteKey string

	ShowDescriptions bool
	ConfirmRemove    bool
	MarkdownStyle    string

	// ConfigPath, when set, persists UI toggles.
	ConfigPath string
}

type focus int

const (
	focusSidebar focus = iota
	focusForm
)

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayHelp
	overlayInfo
	overlayDiff
	overlayConfirm
)

// pendingRemove is a list item removal waiting for confirmation.
type pendingRemove struct {
	list  content.Path
	index int
	label string
}

// Model is the Bubble Tea model for the editor.
type Model struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	width, height int
	keys          keyMap
	help          help.Model
	spinner       spinner.Model
	toaster       toaster.Model

	focus  focus
	cursor int // sidebar row

	session *loader.Session
	form    *form.Form
	field   int // form row, an index into form.Flatten

	// Pending sidebar switch away from a dirty session.
	switchTo int

	editing   bool
	multiline bool
	editPath  content.Path
	input     textinput.Model
	area      textarea.Model

	problems []sections.Problem
	overlay  overlayKind
	remove   *pendingRemove

	showLogs bool
	logs     []string
	logFeed  *log.LogListener
	changes  *pubsub.ContinuousListener[watcher.Change]
}

const maxLogLines = 200

// New creates the editor model.
func New(cfg Config) Model {
	if zone.DefaultManager == nil {
		zone.NewGlobal()
	}
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.SpinnerColor)

	in := textinput.New()
	in.Prompt = ""
	area := textarea.New()
	area.ShowLineNumbers = false

	m := Model{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		width:    100,
		height:   30,
		keys:     defaultKeys(),
		help:     help.New(),
		spinner:  sp,
		toaster:  toaster.New(),
		switchTo: -1,
		input:    in,
		area:     area,
		logFeed:  log.NewListener(ctx),
	}
	if cfg.Changes != nil && cfg.AutoRefresh {
		m.changes = pubsub.NewFilteredListener(ctx, cfg.Changes, pubsub.OfType[watcher.Change](pubsub.FileChangedEvent))
	}
	return m
}

// Close cancels background listeners. Call after the program exits.
func (m Model) Close() {
	if m.session != nil {
		m.session.Close()
	}
	m.cancel()
}

// Session returns the open section session, or nil.
func (m Model) Session() *loader.Session { return m.session }

// Form returns the form of the open section, or nil.
func (m Model) Form() *form.Form { return m.form }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.logFeed.Listen(), m.changes.Listen()}
	if n := len(m.cfg.Warnings); n > 0 {
		msg := fmt.Sprintf("%d section warning(s); press L for details", n)
		if n == 1 {
			msg = m.cfg.Warnings[0].Error()
		}
		for _, w := range m.cfg.Warnings {
			log.Warn(log.CatUI, "section warning", "warning", w.Error())
		}
		var cmd tea.Cmd
		m.toaster, cmd = m.toaster.Show(msg, toaster.StyleWarn, toaster.DefaultDuration)
		cmds = append(cmds, cmd, func() tea.Msg { return initToastMsg{toast: m.toaster} })
	}
	return tea.Batch(cmds...)
}

// initToastMsg carries a toast shown from Init, which cannot mutate the model.
type initToastMsg struct{ toast toaster.Model }

type loadedMsg struct {
	session *loader.Session
	result  loader.LoadResult
}

type savedMsg struct {
	session *loader.Session
	result  loader.SaveResult
}

type draftSavedMsg struct{ err error }

type settingSavedMsg struct {
	key string
	err error
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.area.SetWidth(max(m.formWidth()-6, 10))
		return m, nil

	case initToastMsg:
		m.toaster = msg.toast
		return m, nil

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		return m.handleLoaded(msg)

	case savedMsg:
		return m.handleSaved(msg)

	case draftSavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatDrafts, "autosave failed", msg.err)
		}
		return m, nil

	case settingSavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatConfig, "failed to save setting", msg.err, "key", msg.key)
			return m.toast("Could not save setting: "+msg.err.Error(), toaster.StyleError)
		}
		return m, nil

	case log.LogEvent:
		m.logs = append(m.logs, msg.Payload)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, m.logFeed.Listen()

	case pubsub.Event[watcher.Change]:
		var cmd tea.Cmd
		m, cmd = m.handleChange(msg.Payload)
		return m, tea.Batch(cmd, m.changes.Listen())

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.editing {
		return m.updateInput(msg)
	}
	return m, nil
}

func (m Model) busy() bool {
	if m.session == nil {
		return false
	}
	s := m.session.State()
	return s == loader.StateLoading || s == loader.StateSaving
}

func (m Model) toast(message string, style toaster.Style) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(message, style, toaster.DefaultDuration)
	return m, cmd
}

// open starts loading the section at idx, closing any other session.
func (m Model) open(idx int) (Model, tea.Cmd) {
	if idx < 0 || idx >= len(m.cfg.Sections) {
		return m, nil
	}
	sec := m.cfg.Sections[idx]
	if m.session != nil && m.session.ID() == sec.ID && m.session.State() != loader.StateIdle {
		m.focus = focusForm
		return m, nil
	}
	if m.session != nil && m.session.Dirty() && m.switchTo != idx {
		m.switchTo = idx
		return m.toast(fmt.Sprintf("%s has unsaved changes; press enter again to leave them", m.session.Label()), toaster.StyleWarn)
	}
	m.switchTo = -1
	if m.session != nil {
		m.session.Close()
	}

	m.cursor = idx
	m.session = m.cfg.Loader.Session(sec)
	m.form = nil
	m.field = 0
	m.problems = nil
	m.editing = false
	log.Debug(log.CatUI, "opening section", "section", sec.ID)
	return m.load()
}

// load starts a fetch for the current session.
func (m Model) load() (Model, tea.Cmd) {
	s := m.session
	ticket, err := s.StartLoad()
	if err != nil {
		return m.toast(err.Error(), toaster.StyleWarn)
	}
	ctx := m.ctx
	fetch := func() tea.Msg {
		return loadedMsg{session: s, result: s.Fetch(ctx, ticket)}
	}
	return m, tea.Batch(fetch, m.spinner.Tick)
}

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if msg.session != m.session || !msg.session.Complete(msg.result) {
		return m, nil
	}
	s := m.session
	if s.State() != loader.StateReady {
		if errors.Is(s.Err(), site.ErrNotFound) && !s.Definition().Example().IsNull() {
			return m.toast(fmt.Sprintf("%s does not exist yet; press s to start from the example", s.DataFile()), toaster.StyleInfo)
		}
		return m, nil
	}
	m.mount()
	m.focus = focusForm
	return m, nil
}

// mount renders the session draft into a fresh form, keeping collapse state
// when the same form is re-mounted.
func (m *Model) mount() {
	draft := m.session.Draft()
	if m.form != nil {
		m.form.Reset(draft)
	} else {
		m.form = m.session.Editor().Form(draft, nil)
	}
	m.clampField()
}

func (m *Model) clampField() {
	n := len(m.rows())
	if m.field >= n {
		m.field = n - 1
	}
	if m.field < 0 {
		m.field = 0
	}
}

// rows returns the visible form fields in display order.
func (m Model) rows() []form.Field {
	if m.form == nil {
		return nil
	}
	return form.Flatten(m.form.Fields())
}

// applyEdit pushes the form's document into the session after a mutation.
func (m Model) applyEdit() (Model, tea.Cmd) {
	if err := m.session.Edit(m.form.Value()); err != nil {
		return m.toast(err.Error(), toaster.StyleError)
	}
	m.problems = nil
	m.clampField()
	if m.cfg.Drafts == nil || !m.session.Dirty() {
		return m, nil
	}
	store, siteKey, id, doc, ctx := m.cfg.Drafts, m.cfg.SiteKey, m.session.ID(), m.session.Draft(), m.ctx
	return m, func() tea.Msg {
		return draftSavedMsg{err: store.SaveDraft(ctx, siteKey, id, doc)}
	}
}

// save validates and persists the draft. force skips validation problems.
func (m Model) save(force bool) (Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	if !force {
		if problems := m.session.Validate(); len(problems) > 0 {
			m.problems = problems
			return m.toast(fmt.Sprintf("%d problem(s) found; fix them or press F to save anyway", len(problems)), toaster.StyleWarn)
		}
	}
	s := m.session
	ticket, err := s.BeginSave()
	if err != nil {
		return m.toast(err.Error(), toaster.StyleWarn)
	}
	m.problems = nil
	ctx := m.ctx
	persist := func() tea.Msg {
		return savedMsg{session: s, result: s.Persist(ctx, ticket)}
	}
	return m, tea.Batch(persist, m.spinner.Tick)
}

func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.session != m.session || !msg.session.FinishSave(msg.result) {
		return m, nil
	}
	if msg.result.Err != nil {
		return m.toast(msg.result.Err.Error(), toaster.StyleError)
	}
	return m.toast("Saved "+site.DataPath(m.session.DataFile()), toaster.StyleSuccess)
}

func (m Model) handleChange(change watcher.Change) (Model, tea.Cmd) {
	if m.session == nil || !change.Has(site.DataPath(m.session.DataFile())) {
		return m, nil
	}
	switch {
	case m.session.Dirty():
		return m.toast(m.session.DataFile()+" changed on disk; keeping your edits", toaster.StyleWarn)
	case m.session.State() == loader.StateReady || m.session.State() == loader.StateLoadError:
		log.Info(log.CatUI, "auto-refreshing section", "section", m.session.ID())
		var load, toast tea.Cmd
		m, load = m.load()
		m, toast = m.toast("Reloaded "+m.session.DataFile(), toaster.StyleInfo)
		return m, tea.Batch(load, toast)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft || m.editing || m.overlay != overlayNone {
		return m, nil
	}
	for i := range m.cfg.Sections {
		if zone.Get(sectionZone(i)).InBounds(msg) {
			m.focus = focusSidebar
			m.cursor = i
			return m.open(i)
		}
	}
	for i := range m.rows() {
		if zone.Get(fieldZone(i)).InBounds(msg) {
			m.focus = focusForm
			m.field = i
			return m, nil
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch m.overlay {
	case overlayConfirm:
		return m.handleConfirmKey(msg)
	case overlayHelp, overlayInfo, overlayDiff:
		if key.Matches(msg, m.keys.Back, m.keys.Help, m.keys.Info, m.keys.Diff, m.keys.Quit) {
			m.overlay = overlayNone
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.overlay = overlayHelp
		return m, nil
	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs
		return m, nil
	case key.Matches(msg, m.keys.Descriptions):
		return m.toggleDescriptions()
	case key.Matches(msg, m.keys.SwitchPane):
		if m.focus == focusSidebar && m.form != nil {
			m.focus = focusForm
		} else {
			m.focus = focusSidebar
		}
		return m, nil
	case key.Matches(msg, m.keys.Save):
		return m.save(false)
	case key.Matches(msg, m.keys.ForceSave):
		if len(m.problems) > 0 {
			return m.save(true)
		}
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m.reload()
	case key.Matches(msg, m.keys.Discard):
		return m.discard()
	case key.Matches(msg, m.keys.Seed):
		return m.seed()
	case key.Matches(msg, m.keys.Info):
		if m.currentDefinition() != nil {
			m.overlay = overlayInfo
		}
		return m, nil
	case key.Matches(msg, m.keys.Diff):
		if m.session != nil && m.session.Dirty() {
			m.overlay = overlayDiff
			return m, nil
		}
		return m.toast("No unsaved changes", toaster.StyleInfo)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleFormKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.cfg.Sections)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		return m.open(m.cursor)
	}
	return m, nil
}

func (m Model) reload() (Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	if m.session.Dirty() {
		return m.toast("Discard your changes (x) before reloading", toaster.StyleWarn)
	}
	return m.load()
}

func (m Model) discard() (Model, tea.Cmd) {
	if m.session == nil || !m.session.Dirty() {
		return m, nil
	}
	if err := m.session.Discard(); err != nil {
		return m.toast(err.Error(), toaster.StyleWarn)
	}
	m.problems = nil
	m.mount()
	return m.toast("Changes discarded", toaster.StyleInfo)
}

func (m Model) seed() (Model, tea.Cmd) {
	if m.session == nil || m.session.State() != loader.StateLoadError {
		return m, nil
	}
	if err := m.session.Seed(); err != nil {
		return m.toast(err.Error(), toaster.StyleWarn)
	}
	m.form = nil
	m.mount()
	m.focus = focusForm
	return m.toast("Started from the example; save to create "+m.session.DataFile(), toaster.StyleInfo)
}

func (m Model) toggleDescriptions() (Model, tea.Cmd) {
	m.cfg.ShowDescriptions = !m.cfg.ShowDescriptions
	if m.cfg.ConfigPath == "" {
		return m, nil
	}
	path, value := m.cfg.ConfigPath, m.cfg.ShowDescriptions
	return m, func() tea.Msg {
		const k = "ui.show_descriptions"
		return settingSavedMsg{key: k, err: config.SaveSetting(path, k, value)}
	}
}

// currentDefinition is the definition under the sidebar cursor.
func (m Model) currentDefinition() *sections.Definition {
	if m.focus == focusForm && m.session != nil {
		return m.session.Definition()
	}
	if m.cursor >= 0 && m.cursor < len(m.cfg.Sections) {
		return m.cfg.Sections[m.cursor].Definition
	}
	return nil
}
