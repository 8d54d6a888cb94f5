package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/rtinspect/internal/config"
	"github.com/muurk/rtinspect/internal/inspector"
	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/protocol"
	"github.com/muurk/rtinspect/internal/realtime"
	"github.com/muurk/rtinspect/internal/settings"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenInspector Screen = "inspector"
	ScreenTokens    Screen = "tokens"
)

const (
	maxLogLines     = 500
	messageBuffer   = 64
	refreshTimeout  = 15 * time.Second
	payloadPreview  = 160
	summaryHeight   = 8
	chromeHeight    = 8
	minViewportRows = 3

	// testBroadcastEvent is the event name of broadcasts sent with the b key
	testBroadcastEvent = "inspector_ping"
)

// connState is the state of the test connection
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// Messages delivered to the event loop
type credentialsMsg struct {
	creds []settings.Credential
}

type configChangedMsg struct {
	cfg    realtime.Config
	source realtime.WriteSource
}

type channelMsg struct {
	session int
	msg     *protocol.Message
	at      time.Time
}

type disconnectedMsg struct {
	session int
	err     error
}

type refreshDoneMsg struct {
	err error
}

type registryChangedMsg struct {
	registry *config.Registry
}

// inspectorKeyMap defines key bindings for the inspector screen
type inspectorKeyMap struct {
	Tokens    key.Binding
	Connect   key.Binding
	Broadcast key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k inspectorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tokens, k.Connect, k.Broadcast, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k inspectorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tokens, k.Connect, k.Broadcast, k.Refresh},
		{k.Help, k.Quit},
	}
}

// Options wires the application to its collaborators.
type Options struct {
	// Store owns the live connection Config (required)
	Store *realtime.Store

	// Provider supplies API keys; may be nil
	Provider *settings.Provider

	// ProjectURL is the realtime endpoint base URL used for connections
	ProjectURL string

	// Registry remembers connection defaults on Apply; may be nil
	Registry *config.Registry

	// RegistryPath overrides the registry location used for saving
	RegistryPath string
}

// AppModel is the top-level coordinator model
type AppModel struct {
	CurrentScreen Screen

	store        *realtime.Store
	provider     *settings.Provider
	editor       *realtime.Editor
	projectURL   string
	registry     *config.Registry
	registryPath string

	Popover PopoverModel

	// Connection state
	client  *inspector.Client
	state   connState
	session int
	cancel  context.CancelFunc
	out     chan *protocol.Message
	connCfg realtime.Config
	lastErr error
	status  string

	logLines []string

	// UI state
	Width    int
	Height   int
	Viewport viewport.Model
	Spinner  spinner.Model
	Help     help.Model
	Keys     inspectorKeyMap
}

// NewAppModel creates the application model. The editor subscribes to the
// provider immediately, so the anon key is applied before the first frame.
func NewAppModel(opts Options) AppModel {
	var creds realtime.CredentialSource
	if opts.Provider != nil {
		creds = opts.Provider
	}
	editor := realtime.NewEditor(opts.Store, creds)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return AppModel{
		CurrentScreen: ScreenInspector,
		store:         opts.Store,
		provider:      opts.Provider,
		editor:        editor,
		projectURL:    opts.ProjectURL,
		registry:      opts.Registry,
		registryPath:  opts.RegistryPath,
		Popover:       NewPopoverModel(editor),
		Width:         MinTerminalWidth,
		Height:        24,
		Viewport:      viewport.New(MinTerminalWidth-6, minViewportRows),
		Spinner:       s,
		Help:          help.New(),
		Keys: inspectorKeyMap{
			Tokens: key.NewBinding(
				key.WithKeys("t"),
				key.WithHelp("t", "tokens"),
			),
			Connect: key.NewBinding(
				key.WithKeys("c"),
				key.WithHelp("c", "connect/disconnect"),
			),
			Broadcast: key.NewBinding(
				key.WithKeys("b"),
				key.WithHelp("b", "send test broadcast"),
			),
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh keys"),
			),
			Help: key.NewBinding(
				key.WithKeys("?"),
				key.WithHelp("?", "help"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// Init fetches keys on startup when none have been loaded yet.
func (m AppModel) Init() tea.Cmd {
	if m.provider != nil && !m.provider.Loaded() {
		return m.refreshCmd()
	}
	return nil
}

// Update handles messages for all screens.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		m.Popover.Help.Width = PopoverWidth - 6
		m.layout()
		return m, nil

	case credentialsMsg:
		m.appendLog(fmt.Sprintf("API keys updated: %s", strings.Join(settings.Labels(msg.creds), ", ")))
		if m.CurrentScreen == ScreenTokens {
			m.Popover = m.Popover.SyncBearer()
		}
		return m, nil

	case configChangedMsg:
		if msg.source == realtime.SourceCredentials {
			m.appendLog("Connection token set to the anon key")
		}
		return m.applyConfig(msg.cfg)

	case channelMsg:
		if msg.session != m.session {
			return m, nil
		}
		if m.state == stateConnecting {
			m.state = stateConnected
			m.status = "Connected to " + m.connCfg.Topic()
		}
		m.appendLog(formatLogLine(msg.at, msg.msg))
		return m, waitForMessage(m.session, m.out)

	case disconnectedMsg:
		if msg.session != m.session {
			return m, nil
		}
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.state = stateDisconnected
		m.lastErr = msg.err
		if msg.err != nil {
			m.status = "Connection failed"
			m.appendLog("Connection error: " + msg.err.Error())
		} else {
			m.status = "Disconnected"
		}
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.status = "Failed to refresh API keys"
			if hint := settings.GetTroubleshootingHint(msg.err); hint != "" {
				m.appendLog(hint)
			}
		} else {
			m.status = "API keys refreshed"
		}
		return m, nil

	case registryChangedMsg:
		// Later saves start from the file as edited outside the app.
		if m.registry != nil {
			m.registry = msg.registry
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	switch m.CurrentScreen {
	case ScreenTokens:
		return m.updateTokens(msg)
	default:
		return m.updateInspector(msg)
	}
}

func (m AppModel) updateInspector(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.Keys.Quit):
		m.disconnect()
		return m, tea.Quit

	case key.Matches(keyMsg, m.Keys.Tokens):
		m.Popover = m.Popover.Open()
		m.CurrentScreen = ScreenTokens
		return m, nil

	case key.Matches(keyMsg, m.Keys.Connect):
		if m.state != stateDisconnected {
			m.disconnect()
			m.status = "Disconnected"
			return m, nil
		}
		return m.connect()

	case key.Matches(keyMsg, m.Keys.Broadcast):
		return m.sendTestBroadcast(), nil

	case key.Matches(keyMsg, m.Keys.Refresh):
		if m.provider == nil {
			m.status = "No API key source configured"
			return m, nil
		}
		m.status = "Refreshing API keys..."
		return m, m.refreshCmd()

	case key.Matches(keyMsg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
		m.layout()
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

func (m AppModel) updateTokens(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "ctrl+c" {
		m.editor.CancelAndClose()
		m.disconnect()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.Popover, cmd = m.Popover.Update(msg)

	switch m.Popover.Result() {
	case PopoverCancelled:
		m.CurrentScreen = ScreenInspector
	case PopoverApplied:
		m.CurrentScreen = ScreenInspector
		cfg := m.store.Config()
		m.appendLog("Configuration applied")
		m.remember(cfg)
		return m.applyConfig(cfg)
	}
	return m, cmd
}

// applyConfig brings a live connection in line with cfg. A change of user
// JWT alone is pushed as an access token update; anything else reconnects.
func (m AppModel) applyConfig(cfg realtime.Config) (tea.Model, tea.Cmd) {
	if m.state == stateDisconnected || cfg == m.connCfg {
		return m, nil
	}

	if m.state == stateConnected && onlyBearerChanged(m.connCfg, cfg) {
		if err := m.client.UpdateAccessToken(cfg.AccessToken()); err == nil {
			m.connCfg = cfg
			m.appendLog("Access token updated on " + cfg.Topic())
			return m, nil
		}
	}

	logging.Info("Reconnecting with updated configuration", zap.String("topic", cfg.Topic()))
	m.disconnect()
	return m.connect()
}

func onlyBearerChanged(from, to realtime.Config) bool {
	to.Bearer = from.Bearer
	return to == from
}

// sendTestBroadcast publishes a ping on the joined channel. Joins request
// broadcast self, so the ping shows up in the log when policies allow it.
func (m AppModel) sendTestBroadcast() AppModel {
	if m.state != stateConnected || m.client == nil {
		m.status = "Connect first to send a broadcast"
		return m
	}

	err := m.client.Broadcast(testBroadcastEvent, map[string]string{
		"sent_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		m.status = "Broadcast failed: " + err.Error()
		return m
	}
	m.status = "Sent " + testBroadcastEvent
	return m
}

// remember stores non-secret connection defaults in the registry.
func (m *AppModel) remember(cfg realtime.Config) {
	if m.registry == nil {
		return
	}

	label := ""
	if cred, ok := settings.FindByValue(m.editor.Credentials(), cfg.Token); ok {
		label = cred.Label
	}
	m.registry.RememberConnection(cfg, label)

	var err error
	if m.registryPath != "" {
		err = m.registry.SaveTo(m.registryPath)
	} else {
		err = m.registry.Save()
	}
	if err != nil {
		logging.Warn("Failed to save connection defaults", zap.Error(err))
		m.status = "Failed to save connection defaults"
	}
}

func (m AppModel) connect() (tea.Model, tea.Cmd) {
	if m.projectURL == "" {
		m.status = "No project URL configured"
		return m, nil
	}

	cfg := m.store.Config()
	client := inspector.NewClient(m.projectURL)
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan *protocol.Message, messageBuffer)

	m.session++
	m.client = client
	m.state = stateConnecting
	m.cancel = cancel
	m.out = out
	m.connCfg = cfg
	m.lastErr = nil
	m.status = "Connecting to " + cfg.Topic()

	session := m.session
	run := func() tea.Msg {
		return disconnectedMsg{session: session, err: client.Run(ctx, cfg, out)}
	}
	return m, tea.Batch(run, waitForMessage(session, out), m.Spinner.Tick)
}

func (m *AppModel) disconnect() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.session++
	m.state = stateDisconnected
}

func (m AppModel) refreshCmd() tea.Cmd {
	provider := m.provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return refreshDoneMsg{err: provider.ForceRefresh(ctx)}
	}
}

func waitForMessage(session int, out <-chan *protocol.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-out
		if !ok {
			return nil
		}
		return channelMsg{session: session, msg: msg, at: time.Now()}
	}
}

func (m *AppModel) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.Viewport.SetContent(strings.Join(m.logLines, "\n"))
	m.Viewport.GotoBottom()
}

func (m *AppModel) layout() {
	width := m.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	rows := m.Height - summaryHeight - chromeHeight - lipgloss.Height(m.Help.View(m.Keys))
	if rows < minViewportRows {
		rows = minViewportRows
	}
	m.Viewport.Width = width - 6
	m.Viewport.Height = rows
}

func formatLogLine(at time.Time, msg *protocol.Message) string {
	payload := string(msg.Payload)
	if len(payload) > payloadPreview {
		payload = payload[:payloadPreview] + "…"
	}

	line := LogTimeStyle.Render(at.Format("15:04:05")) + " " +
		LogEventStyle.Render(msg.Event) + " " +
		ValueStyle.Render(msg.Topic)
	if status := msg.Status(); status != "" {
		line += " " + statusStyle(status).Render(status)
	}
	return line + " " + payload
}

func statusStyle(status string) lipgloss.Style {
	if status == protocol.StatusOK {
		return StatusOKStyle
	}
	return ErrorTextStyle
}

// View renders the current screen.
func (m AppModel) View() string {
	if m.CurrentScreen == ScreenTokens {
		return RenderModal(m.Popover.View(), m.Width, m.Height)
	}

	var b strings.Builder
	b.WriteString(RenderTitle("Connection"))
	b.WriteString("\n")
	b.WriteString(PanelStyle.Render(m.renderSummary()))
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}

func (m AppModel) renderSummary() string {
	cfg := m.store.Config()

	token := "not set"
	if cfg.Token != "" {
		token = logging.Mask(cfg.Token)
		if cred, ok := settings.FindByValue(m.editor.Credentials(), cfg.Token); ok {
			token = cred.Label + " (" + token + ")"
		}
	}

	bearer := "not set"
	if cfg.Impersonating() {
		bearer = logging.Mask(cfg.Bearer)
	}

	rows := []string{
		RenderField("Project", valueOr(cfg.ProjectRef, "-")),
		RenderField("Endpoint", valueOr(m.projectURL, "-")),
		RenderField("Channel", cfg.Topic()),
		RenderField("API key", token),
		RenderField("User JWT", bearer),
	}
	return strings.Join(rows, "\n")
}

func (m AppModel) renderStatus() string {
	var state string
	switch m.state {
	case stateConnecting:
		state = m.Spinner.View() + " " + StatusWarnStyle.Render("Connecting")
	case stateConnected:
		state = StatusOKStyle.Render("● Connected")
	default:
		state = SubtitleStyle.Render("○ Disconnected")
	}

	if m.status == "" {
		return state
	}
	status := SubtitleStyle.Render(m.status)
	if m.lastErr != nil {
		status = ErrorTextStyle.Render(m.status + ": " + m.lastErr.Error())
	}
	return state + "  " + status
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// coalesce runs emit on its own goroutine after each trigger until ctx is
// done. The returned trigger never blocks; triggers that arrive while an
// emit is pending collapse into it.
func coalesce(ctx context.Context, emit func()) func() {
	pending := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				emit()
			}
		}
	}()
	return func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := NewAppModel(opts)
	defer m.editor.Teardown()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	relayCtx, stopRelays := context.WithCancel(ctx)
	defer stopRelays()

	// Commit and Refresh run on the event loop and notify synchronously, so
	// observers only signal and the current state is sent from a relay.
	if opts.Provider != nil {
		provider := opts.Provider
		notify := coalesce(relayCtx, func() {
			p.Send(credentialsMsg{creds: provider.Credentials()})
		})
		sub := provider.Subscribe(func([]settings.Credential) { notify() })
		defer sub.Unsubscribe()
	}

	store := opts.Store
	notify := coalesce(relayCtx, func() {
		p.Send(configChangedMsg{cfg: store.Config(), source: store.LastSource()})
	})
	stop := store.Observe(func(realtime.Config, realtime.WriteSource) { notify() })
	defer stop()

	if opts.Registry != nil && opts.RegistryPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := config.WatchFile(watchCtx, opts.RegistryPath, func(registry *config.Registry) {
				p.Send(registryChangedMsg{registry: registry})
			})
			if err != nil {
				logging.Warn("Config watch stopped", zap.Error(err))
			}
		}()
	}

	final, err := p.Run()
	if fm, ok := final.(AppModel); ok {
		fm.disconnect()
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
