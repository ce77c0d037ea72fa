package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/netscope/internal/export"
	"github.com/sadopc/netscope/internal/store"
	"github.com/sadopc/netscope/internal/ui/msgs"
)

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.Toggle()
		a.mode = msgs.ModeHelp
		a.statusBar.SetMode(a.mode)
		return a, nil
	case key.Matches(msg, a.keys.Filter):
		a.filter.Open()
		a.mode = msgs.ModeFilter
		a.statusBar.SetMode(a.mode)
		return a, nil
	case key.Matches(msg, a.keys.Next):
		a.selectIndex(a.selected + 1)
		return a, nil
	case key.Matches(msg, a.keys.Prev):
		a.selectIndex(a.selected - 1)
		return a, nil
	case key.Matches(msg, a.keys.First):
		a.selectIndex(0)
		return a, nil
	case key.Matches(msg, a.keys.Last):
		a.selectIndex(len(a.rows) - 1)
		return a, nil
	case key.Matches(msg, a.keys.Copy):
		return a, func() tea.Msg { return msgs.CopyAsCurlMsg{} }
	case key.Matches(msg, a.keys.Clear):
		return a, func() tea.Msg { return msgs.ClearRecordsMsg{} }
	case key.Matches(msg, a.keys.Refetch):
		if len(a.targets) == 0 {
			cmd := a.toast.Show("No targets to fetch", true, 2*time.Second)
			return a, cmd
		}
		return a, a.fetchAll()
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a App) copyAsCurl() (tea.Model, tea.Cmd) {
	if a.selected < 0 || a.selected >= len(a.rows) {
		cmd := a.toast.Show("No record selected", true, 2*time.Second)
		return a, cmd
	}
	// Copy the stored revision, not the one the row was drawn from.
	rec, ok := a.store.Get(a.selectedID)
	if !ok {
		cmd := a.toast.Show("Record was evicted", true, 2*time.Second)
		return a, cmd
	}
	if err := a.copy(export.AsCurl(rec)); err != nil {
		a.logger.Warn("clipboard write failed", "error", err)
		cmd := a.toast.Show("Clipboard unavailable", true, 3*time.Second)
		return a, cmd
	}
	cmd := a.toast.Show("Copied as cURL", false, 2*time.Second)
	return a, cmd
}

func (a App) fetchAll() tea.Cmd {
	cmds := make([]tea.Cmd, len(a.targets))
	for i, u := range a.targets {
		cmds[i] = fetch(a.client, u)
	}
	return tea.Batch(cmds...)
}

// fetch requests url and drains the body so the capture transport sees
// the whole response.
func fetch(client *http.Client, url string) tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
		if err != nil {
			return msgs.FetchDoneMsg{URL: url, Err: err}
		}
		resp, err := client.Do(req)
		if err != nil {
			return msgs.FetchDoneMsg{URL: url, Err: err}
		}
		defer resp.Body.Close()
		_, err = io.Copy(io.Discard, resp.Body)
		return msgs.FetchDoneMsg{URL: url, Err: err}
	}
}

func pollAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return msgs.PollMsg{}
	})
}

// waitForEvent blocks for the next store event. The app issues it again
// after handling each event.
func waitForEvent(events <-chan store.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return msgs.StoreClosedMsg{}
		}
		return msgs.StoreEventMsg{Event: ev}
	}
}
