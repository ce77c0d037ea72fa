package store

// EventKind identifies what happened to the store.
type EventKind int

const (
	EventAppended EventKind = iota
	EventUpdated
	EventCompleted
	EventEvicted
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventAppended:
		return "appended"
	case EventUpdated:
		return "updated"
	case EventCompleted:
		return "completed"
	case EventEvicted:
		return "evicted"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event describes a single change. ID is empty for EventCleared.
type Event struct {
	Kind     EventKind
	ID       string
	Revision uint64
}

const subscriberBuffer = 128

// Subscribe registers a subscriber for store events. Delivery never blocks
// the writer: a subscriber that falls behind misses events. Call the
// returned function to unsubscribe; it closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	var once bool
	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(s.subscribers, ch)
		close(ch)
	}
	return ch, unsubscribe
}

func (s *Store) publish(ev Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
