package editor

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/form"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/ui/toaster"
)

func (m Model) editable() bool {
	return m.session != nil && m.form != nil && m.session.State().Editable()
}

// current returns the field under the form cursor.
func (m Model) current() (form.Field, bool) {
	rows := m.rows()
	if m.field < 0 || m.field >= len(rows) {
		return form.Field{}, false
	}
	return rows[m.field], true
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	switch {
	case key.Matches(msg, m.keys.Back):
		m.focus = focusSidebar
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.field > 0 {
			m.field--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.field < len(rows)-1 {
			m.field++
		}
		return m, nil
	}

	fd, ok := m.current()
	if !ok || !m.editable() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Open):
		switch {
		case fd.Kind == form.KindGroup || fd.Kind == form.KindList:
			m.form.ToggleCollapse(fd.Path)
			return m, nil
		case fd.Kind == form.KindToggle:
			return m.mutate(m.form.Toggle(fd.Path))
		default:
			return m.beginEdit(fd)
		}
	case key.Matches(msg, m.keys.Toggle):
		if fd.Kind == form.KindToggle {
			return m.mutate(m.form.Toggle(fd.Path))
		}
		if fd.Kind == form.KindGroup || fd.Kind == form.KindList {
			m.form.ToggleCollapse(fd.Path)
		}
		return m, nil
	case key.Matches(msg, m.keys.Add):
		list, ok := m.listFor(fd)
		if !ok {
			return m, nil
		}
		return m.mutate(m.form.Add(list))
	case key.Matches(msg, m.keys.Remove):
		if !fd.IsItem() {
			return m, nil
		}
		if m.cfg.ConfirmRemove {
			m.remove = &pendingRemove{list: fd.Path.Parent(), index: fd.Index, label: fd.Label}
			m.overlay = overlayConfirm
			return m, nil
		}
		return m.mutate(m.form.Remove(fd.Path.Parent(), fd.Index))
	case key.Matches(msg, m.keys.MoveUp, m.keys.MoveDown):
		if !fd.IsItem() {
			return m, nil
		}
		dir := form.Up
		if key.Matches(msg, m.keys.MoveDown) {
			dir = form.Down
		}
		var cmd tea.Cmd
		m, cmd = m.mutate(m.form.Move(fd.Path.Parent(), fd.Index, dir))
		m.followMovedItem(fd, dir)
		return m, cmd
	}
	return m, nil
}

// listFor returns the list a new item should go into: the list itself, or
// the parent list of an item.
func (m Model) listFor(fd form.Field) (content.Path, bool) {
	if fd.Kind == form.KindList {
		return fd.Path, true
	}
	if fd.IsItem() {
		return fd.Path.Parent(), true
	}
	return nil, false
}

// followMovedItem keeps the cursor on an item after it moved.
func (m *Model) followMovedItem(fd form.Field, dir form.Direction) {
	target := fd.Index - 1
	if dir == form.Down {
		target = fd.Index + 1
	}
	want := fd.Path.Parent().Child(content.Index(target))
	for i, row := range m.rows() {
		if row.Path.Equal(want) {
			m.field = i
			return
		}
	}
}

// mutate finishes a form mutation: errors become toasts, success flows into
// the session.
func (m Model) mutate(err error) (Model, tea.Cmd) {
	if err != nil {
		log.Debug(log.CatUI, "form edit rejected", "error", err.Error())
		return m.toast(err.Error(), toaster.StyleError)
	}
	return m.applyEdit()
}

func (m Model) beginEdit(fd form.Field) (tea.Model, tea.Cmd) {
	text := fd.Value.Str()
	if fd.Kind == form.KindNumber {
		text = fd.Value.String()
	}
	m.editing = true
	m.editPath = fd.Path
	m.multiline = fd.Kind == form.KindMultiline
	if m.multiline {
		m.area.SetValue(text)
		m.area.SetWidth(max(m.formWidth()-6, 10))
		m.area.SetHeight(5)
		return m, m.area.Focus()
	}
	m.input.SetValue(text)
	m.input.CursorEnd()
	m.input.Width = max(m.formWidth()-6, 10)
	m.input.Placeholder = placeholderFor(fd.Kind)
	return m, m.input.Focus()
}

func placeholderFor(k form.Kind) string {
	switch k {
	case form.KindURL:
		return "https://"
	case form.KindEmail:
		return "name@example.com"
	case form.KindNumber:
		return "0"
	default:
		return ""
	}
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, cancelEdit):
		m.endEdit()
		return m, nil
	case !m.multiline && key.Matches(msg, commitLine),
		m.multiline && key.Matches(msg, commitArea):
		value := m.input.Value()
		if m.multiline {
			value = m.area.Value()
		}
		if err := m.form.SetText(m.editPath, value); err != nil {
			// Keep the input open so the value can be fixed.
			return m.toast(err.Error(), toaster.StyleError)
		}
		m.endEdit()
		return m.applyEdit()
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m.updateInput(msg)
}

func (m *Model) endEdit() {
	m.editing = false
	m.editPath = nil
	m.input.Blur()
	m.area.Blur()
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.multiline {
		m.area, cmd = m.area.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, confirmYes):
		r := m.remove
		m.remove = nil
		m.overlay = overlayNone
		if r == nil {
			return m, nil
		}
		return m.mutate(m.form.Remove(r.list, r.index))
	case key.Matches(msg, confirmNo):
		m.remove = nil
		m.overlay = overlayNone
	}
	return m, nil
}

func (r pendingRemove) prompt() string {
	return fmt.Sprintf("Remove %s? (y/n)", r.label)
}
