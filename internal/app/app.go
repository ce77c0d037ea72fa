package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/netscope/internal/layout"
	"github.com/sadopc/netscope/internal/logging"
	"github.com/sadopc/netscope/internal/measure"
	"github.com/sadopc/netscope/internal/store"
	"github.com/sadopc/netscope/internal/ui/components"
	"github.com/sadopc/netscope/internal/ui/grid"
	"github.com/sadopc/netscope/internal/ui/msgs"
	"github.com/sadopc/netscope/internal/ui/theme"
)

// Options wires an App to its collaborators.
type Options struct {
	Store   *store.Store
	Layout  *layout.ViewModel
	Measure *measure.Service // optional, for cache stats
	Styles  theme.Styles

	// Client fetches Targets. It should route through a capture transport
	// so fetched exchanges show up in Store.
	Client   *http.Client
	Targets  []string
	Interval time.Duration // 0 fetches once

	Logger *slog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	store    *store.Store
	vm       *layout.ViewModel
	measurer *measure.Service
	renderer *grid.Renderer

	client   *http.Client
	targets  []string
	interval time.Duration

	events      <-chan store.Event
	unsubscribe func()

	viewport  viewport.Model
	filter    components.Filter
	statusBar components.StatusBar
	toast     components.Toast
	help      components.Help

	query      string // applied filter, set by FilterChangedMsg
	rows       []layout.Row
	selected   int
	selectedID string

	mode   msgs.AppMode
	keys   KeyMap
	styles theme.Styles
	copy   func(string) error
	logger *slog.Logger

	width  int
	height int
	ready  bool
}

// New creates a new App model subscribed to opts.Store.
func New(opts Options) App {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	events, unsubscribe := opts.Store.Subscribe()

	return App{
		store:    opts.Store,
		vm:       opts.Layout,
		measurer: opts.Measure,
		renderer: grid.New(opts.Layout, opts.Styles),

		client:   opts.Client,
		targets:  opts.Targets,
		interval: opts.Interval,

		events:      events,
		unsubscribe: unsubscribe,

		filter:    components.NewFilter(opts.Styles),
		statusBar: components.NewStatusBar(opts.Styles),
		toast:     components.NewToast(opts.Styles),
		help:      components.NewHelp(opts.Styles),

		selected: -1,
		mode:     msgs.ModeNormal,
		keys:     DefaultKeyMap(),
		styles:   opts.Styles,
		copy:     clipboard.WriteAll,
		logger:   logger,
	}
}

// Close ends the store subscription.
func (a App) Close() {
	a.unsubscribe()
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(a.events)}
	if len(a.targets) > 0 {
		cmds = append(cmds, a.fetchAll())
	}
	if a.interval > 0 {
		cmds = append(cmds, pollAfter(a.interval))
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport = viewport.New(msg.Width, a.viewportHeight())
		a.statusBar.SetWidth(msg.Width)
		a.filter.SetWidth(msg.Width)
		a.toast.SetWidth(msg.Width)
		a.help.SetHeight(msg.Height)
		a.ready = true
		cmd := a.refresh()
		return a, cmd

	case tea.KeyMsg:
		if a.help.Visible {
			var cmd tea.Cmd
			a.help, cmd = a.help.Update(msg)
			return a, cmd
		}
		if a.filter.Visible {
			var cmd tea.Cmd
			a.filter, cmd = a.filter.Update(msg)
			return a, cmd
		}
		return a.handleKey(msg)

	case msgs.SetModeMsg:
		a.mode = msg.Mode
		a.statusBar.SetMode(msg.Mode)
		return a, nil

	case msgs.FilterChangedMsg:
		a.query = msg.Query
		a.statusBar.SetFilter(msg.Query)
		cmd := a.refresh()
		return a, cmd

	case msgs.StoreEventMsg:
		if msg.Event.Kind == store.EventEvicted {
			a.statusBar.AddEvicted(1)
		}
		cmd := a.refresh()
		return a, tea.Batch(cmd, waitForEvent(a.events))

	case msgs.StoreClosedMsg:
		return a, nil

	case msgs.FetchDoneMsg:
		if msg.Err != nil {
			a.logger.Debug("fetch failed", "url", msg.URL, "error", msg.Err)
			cmd := a.toast.Show("fetch failed: "+msg.URL, true, 3*time.Second)
			return a, cmd
		}
		return a, nil

	case msgs.PollMsg:
		return a, tea.Batch(a.fetchAll(), pollAfter(a.interval))

	case msgs.CopyAsCurlMsg:
		return a.copyAsCurl()

	case msgs.ClearRecordsMsg:
		a.store.Clear()
		a.selectedID = ""
		cmd := a.refresh()
		toast := a.toast.Show("Records cleared", false, 2*time.Second)
		return a, tea.Batch(cmd, toast)

	case msgs.ToastMsg:
		cmd := a.toast.Show(msg.Text, msg.IsError, msg.Duration)
		return a, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.statusBar, cmd = a.statusBar.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.toast, cmd = a.toast.Update(msg)
	return a, cmd
}

func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.help.Visible {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, a.help.View())
	}

	footer := ""
	switch {
	case a.filter.Visible:
		footer = a.filter.View()
	case a.toast.Visible:
		footer = a.toast.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		footer,
		a.statusBar.View(),
	)
}

// viewportHeight leaves one line for the footer and one for the status bar.
func (a App) viewportHeight() int {
	return max(a.height-2, 1)
}

// refresh rebuilds the visible rows from the store and redraws the grid.
// The returned command, when non-nil, animates the pending indicator.
func (a *App) refresh() tea.Cmd {
	if !a.ready {
		return nil
	}

	all := a.vm.VisibleRecords(a.width)
	targets := make([]string, len(all))
	for i, row := range all {
		targets[i] = row.Record.Method + " " + row.Record.URL
	}
	idx := components.Match(a.query, targets)

	a.rows = make([]layout.Row, 0, len(idx))
	inFlight := 0
	for _, row := range all {
		if row.Record.InFlight() {
			inFlight++
		}
	}
	for _, i := range idx {
		a.rows = append(a.rows, all[i])
	}

	a.selected = -1
	for i, row := range a.rows {
		if row.Record.ID == a.selectedID {
			a.selected = i
			break
		}
	}
	if a.selected < 0 && len(a.rows) > 0 {
		a.selected = 0
		a.selectedID = a.rows[0].Record.ID
	}

	cmd := a.statusBar.SetCounts(a.store.Len(), len(a.rows), a.store.Retention(), inFlight)
	if a.measurer != nil {
		st := a.measurer.Stats()
		a.statusBar.SetCacheStats(st.Hits, st.Misses)
	}

	a.redraw()
	return cmd
}

func (a *App) redraw() {
	if len(a.rows) == 0 {
		text := "No requests captured yet"
		if a.query != "" {
			text = "No records match /" + a.query
		}
		a.viewport.SetContent(a.styles.Empty.Render(text))
		a.viewport.GotoTop()
		return
	}
	a.viewport.SetContent(a.renderer.RenderRows(a.rows, a.selected))
	a.ensureVisible()
}

// ensureVisible scrolls so the selected cell is on screen, top aligned
// when it is taller than the viewport.
func (a *App) ensureVisible() {
	if a.selected < 0 || a.selected >= len(a.rows) {
		return
	}
	top := grid.Offset(a.rows, a.selected)
	bottom := top + a.rows[a.selected].Metrics.CellHeight
	switch {
	case top < a.viewport.YOffset:
		a.viewport.SetYOffset(top)
	case bottom > a.viewport.YOffset+a.viewport.Height:
		a.viewport.SetYOffset(min(bottom-a.viewport.Height, top))
	}
}

func (a *App) selectIndex(i int) {
	if len(a.rows) == 0 {
		return
	}
	i = min(max(i, 0), len(a.rows)-1)
	a.selected = i
	a.selectedID = a.rows[i].Record.ID
	a.redraw()
}
