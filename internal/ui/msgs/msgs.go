package msgs

import (
	"time"

	"github.com/sadopc/netscope/internal/store"
)

// AppMode represents the current input mode.
type AppMode int

const (
	ModeNormal AppMode = iota
	ModeFilter
	ModeHelp
)

func (m AppMode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeFilter:
		return "FILTER"
	case ModeHelp:
		return "HELP"
	default:
		return "UNKNOWN"
	}
}

// SetModeMsg changes the app mode.
type SetModeMsg struct {
	Mode AppMode
}

// StoreEventMsg carries one record store notification.
type StoreEventMsg struct {
	Event store.Event
}

// StoreClosedMsg is sent when the store subscription ends.
type StoreClosedMsg struct{}

// FilterChangedMsg is sent when the filter query changes.
type FilterChangedMsg struct {
	Query string
}

// PollMsg triggers another round of fetches in watch mode.
type PollMsg struct{}

// FetchDoneMsg reports one finished fetch.
type FetchDoneMsg struct {
	URL string
	Err error
}

// CopyAsCurlMsg copies the selected record as a curl command.
type CopyAsCurlMsg struct{}

// ClearRecordsMsg drops every record.
type ClearRecordsMsg struct{}

// ToastMsg shows a temporary notification.
type ToastMsg struct {
	Text     string
	IsError  bool
	Duration time.Duration
}
