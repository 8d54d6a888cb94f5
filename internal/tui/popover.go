package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/realtime"
	"github.com/muurk/rtinspect/internal/settings"
)

// popoverFocus identifies the focused control in the tokens popover
type popoverFocus int

const (
	focusToken popoverFocus = iota
	focusImpersonate
	focusBearer
	focusCancel
	focusApply
)

// PopoverResult is how the popover was closed
type PopoverResult int

const (
	PopoverOpen PopoverResult = iota
	PopoverCancelled
	PopoverApplied
)

// popoverKeyMap defines key bindings for the tokens popover
type popoverKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Enter  key.Binding
	Cancel key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k popoverKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Right, k.Toggle, k.Enter, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k popoverKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.Enter, k.Cancel},
	}
}

func newPopoverKeyMap() popoverKeyMap {
	return popoverKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "shift+tab"),
			key.WithHelp("↑/shift+tab", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "tab"),
			key.WithHelp("↓/tab", "next"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous key"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next key"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// PopoverModel is the "Test RLS policies" popover. Every change goes
// through the editor; the model only tracks focus and the JWT input.
type PopoverModel struct {
	editor *realtime.Editor

	focus  popoverFocus
	bearer textinput.Model
	result PopoverResult

	Keys popoverKeyMap
	Help help.Model
}

// NewPopoverModel creates a closed popover bound to editor.
func NewPopoverModel(editor *realtime.Editor) PopoverModel {
	ti := textinput.New()
	ti.Placeholder = "Enter a user's JWT"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 4096
	ti.Width = PopoverWidth - 24

	return PopoverModel{
		editor: editor,
		bearer: ti,
		Keys:   newPopoverKeyMap(),
		Help:   help.New(),
	}
}

// Open starts an editing session from the owner's current Config.
func (m PopoverModel) Open() PopoverModel {
	m.editor.Open()
	m.result = PopoverOpen
	m.focus = focusToken
	m.bearer.SetValue(m.editor.Draft().Bearer)
	m.bearer.Blur()
	return m
}

// Result reports how the popover was closed, or PopoverOpen while editing.
func (m PopoverModel) Result() PopoverResult {
	return m.result
}

// Update handles key input for the popover.
func (m PopoverModel) Update(msg tea.Msg) (PopoverModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.focus == focusBearer {
			var cmd tea.Cmd
			m.bearer, cmd = m.bearer.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.Keys.Cancel):
		m.editor.CancelAndClose()
		m.result = PopoverCancelled
		logging.Debug("Tokens popover cancelled")
		return m, nil

	case key.Matches(keyMsg, m.Keys.Up):
		return m.moveFocus(-1)

	case key.Matches(keyMsg, m.Keys.Down):
		return m.moveFocus(1)
	}

	if m.focus == focusBearer {
		if key.Matches(keyMsg, m.Keys.Enter) {
			m.focus = focusApply
			m.bearer.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.bearer, cmd = m.bearer.Update(keyMsg)
		m.editor.SetDraftField(realtime.FieldBearer, m.bearer.Value())
		return m, cmd
	}

	switch m.focus {
	case focusToken:
		switch {
		case key.Matches(keyMsg, m.Keys.Left):
			m.cycleToken(-1)
		case key.Matches(keyMsg, m.Keys.Right), key.Matches(keyMsg, m.Keys.Enter):
			m.cycleToken(1)
		}

	case focusImpersonate:
		if key.Matches(keyMsg, m.Keys.Toggle) || key.Matches(keyMsg, m.Keys.Enter) {
			if m.editor.ToggleImpersonation() {
				m.focus = focusBearer
				cmd := m.bearer.Focus()
				return m, cmd
			}
			m.bearer.SetValue("")
		}

	case focusCancel:
		if key.Matches(keyMsg, m.Keys.Enter) {
			m.editor.CancelAndClose()
			m.result = PopoverCancelled
		}

	case focusApply:
		if key.Matches(keyMsg, m.Keys.Enter) {
			m.editor.Commit()
			m.result = PopoverApplied
		}
	}

	return m, nil
}

// moveFocus steps through the visible controls. The JWT input only takes
// part while impersonation is enabled.
func (m PopoverModel) moveFocus(delta int) (PopoverModel, tea.Cmd) {
	order := m.focusOrder()
	idx := 0
	for i, f := range order {
		if f == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(order)) % len(order)
	m.focus = order[idx]

	if m.focus == focusBearer {
		cmd := m.bearer.Focus()
		return m, cmd
	}
	m.bearer.Blur()
	return m, nil
}

func (m PopoverModel) focusOrder() []popoverFocus {
	if m.editor.ImpersonationEnabled() {
		return []popoverFocus{focusToken, focusImpersonate, focusBearer, focusCancel, focusApply}
	}
	return []popoverFocus{focusToken, focusImpersonate, focusCancel, focusApply}
}

// cycleToken selects the next or previous credential as the draft token.
// Disabled while the token is locked to the anon key.
func (m *PopoverModel) cycleToken(delta int) {
	if m.editor.TokenLocked() {
		return
	}
	creds := m.editor.Credentials()
	if len(creds) == 0 {
		return
	}

	current := -1
	token := m.editor.Draft().Token
	for i, c := range creds {
		if c.Value == token {
			current = i
			break
		}
	}

	next := 0
	if current >= 0 {
		next = (current + delta + len(creds)) % len(creds)
	}
	m.editor.SetDraftField(realtime.FieldToken, creds[next].Value)
}

// SyncBearer reloads the JWT input from the draft. Used after credential
// updates so the view never drifts from the editor.
func (m PopoverModel) SyncBearer() PopoverModel {
	if v := m.editor.Draft().Bearer; v != m.bearer.Value() {
		m.bearer.SetValue(v)
	}
	if !m.editor.ImpersonationEnabled() && m.focus == focusBearer {
		m.focus = focusImpersonate
		m.bearer.Blur()
	}
	return m
}

// View renders the popover box.
func (m PopoverModel) View() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Test RLS policies"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Choose an API key and optionally impersonate a user to test channel policies."))
	b.WriteString("\n\n")

	draft := m.editor.Draft()
	impersonating := m.editor.ImpersonationEnabled()

	b.WriteString(m.renderTokenSelector(draft.Token))
	b.WriteString("\n")
	if m.editor.TokenLocked() {
		b.WriteString(LabelStyle.Render("") + DisabledStyle.Render("locked to anon while impersonating"))
		b.WriteString("\n")
	}
	b.WriteString(SubtitleStyle.Render("service_role bypasses RLS policies. Use anon to test policies with realtime messages."))
	b.WriteString("\n\n")

	b.WriteString(RenderCheckbox("Impersonate a user", impersonating, m.focus == focusImpersonate))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Use a user's JWT to test RLS policies. The API key should be anon."))
	b.WriteString("\n")

	if impersonating {
		label := LabelStyle.Render("User JWT")
		if m.focus == focusBearer {
			label = FocusedStyle.Width(14).Render("User JWT")
		}
		b.WriteString(label + m.bearer.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		RenderButton("Cancel", m.focus == focusCancel),
		" ",
		RenderButton("Apply", m.focus == focusApply),
	)
	b.WriteString(buttons)
	b.WriteString("\n\n")
	b.WriteString(m.Help.View(m.Keys))

	return PopoverStyle.Render(b.String())
}

func (m PopoverModel) renderTokenSelector(token string) string {
	creds := m.editor.Credentials()

	var value string
	if cred, ok := settings.FindByValue(creds, token); ok {
		value = cred.Label
	} else if token != "" {
		value = "custom " + logging.Mask(token)
	} else {
		value = "none"
	}
	if len(creds) == 0 {
		value += " (no keys loaded)"
	}

	label := LabelStyle.Render("API key")
	switch {
	case m.editor.TokenLocked():
		return label + DisabledStyle.Render("‹ "+value+" ›")
	case m.focus == focusToken:
		return FocusedStyle.Width(14).Render("API key") + FocusedStyle.Render("‹ "+value+" ›")
	default:
		return label + ValueStyle.Render("‹ "+value+" ›")
	}
}
