package toaster

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()

	assert.False(t, m.Visible())
	assert.Empty(t, m.View())
}

func TestShow(t *testing.T) {
	m, cmd := New().Show("Saved hero.json", StyleSuccess, time.Millisecond)

	require.NotNil(t, cmd)
	assert.True(t, m.Visible())
	assert.Contains(t, m.View(), "✓ Saved hero.json")
}

func TestView_Styles(t *testing.T) {
	cases := map[Style]string{
		StyleSuccess: "✓",
		StyleError:   "✗",
		StyleInfo:    "•",
		StyleWarn:    "!",
	}
	for style, icon := range cases {
		m, _ := New().Show("msg", style, time.Second)
		assert.Contains(t, m.View(), icon+" msg")
	}
}

func TestDismiss_OnlyMatchingToast(t *testing.T) {
	m, first := New().Show("First", StyleInfo, time.Millisecond)
	m, second := m.Show("Second", StyleError, time.Millisecond)

	// The first toast's timer fires after the second toast replaced it.
	m = m.Update(first())
	assert.True(t, m.Visible())
	assert.Equal(t, "Second", m.Message())

	m = m.Update(second())
	assert.False(t, m.Visible())
	assert.Empty(t, m.View())
}

func TestOverlay(t *testing.T) {
	bg := strings.Repeat(strings.Repeat(".", 40)+"\n", 9) + strings.Repeat(".", 40)

	assert.Equal(t, bg, New().Overlay(bg, 40, 10))

	m, _ := New().Show("Hi", StyleSuccess, time.Second)
	out := m.Overlay(bg, 40, 10)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 10)
	assert.Contains(t, lines[7], "Hi")
	assert.Equal(t, lines[0], strings.Repeat(".", 40))
}
