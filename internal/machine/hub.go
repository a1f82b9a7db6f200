package machine

import "sync"

// Pusher delivers events to one connected client. Implementations must
// not block: the websocket transport backs this with a buffered send
// channel.
type Pusher interface {
	Push(ev Event)
}

// Hub fans coordinator state transitions out to subscribed connections.
// It owns the subscription map; the coordinator remains the single
// source of truth for who holds the machine. Pushes happen after the
// hub lock is dropped so delivery never holds up state changes.
type Hub struct {
	coord *Coordinator

	mu    sync.Mutex
	conns map[string]Pusher
}

func NewHub(coord *Coordinator) *Hub {
	return &Hub{coord: coord, conns: make(map[string]Pusher)}
}

type push struct {
	to Pusher
	ev Event
}

func deliver(batch []push) {
	for _, p := range batch {
		p.to.Push(p.ev)
	}
}

// Connect registers a new connection and tries to claim the machine for
// it. The caller always hears its own status before anyone else hears
// the broadcast.
func (h *Hub) Connect(connID string, p Pusher) {
	h.mu.Lock()
	h.conns[connID] = p

	batch := []push{{p, Event{Type: EventConnected, ConnectionID: connID}}}
	if h.coord.Claim(connID) {
		batch = append(batch, push{p, Event{Type: EventAvailable}})
		for id, other := range h.conns {
			if id != connID {
				batch = append(batch, push{other, Event{Type: EventOccupied, ConnectionID: connID}})
			}
		}
	} else {
		// The machine stays with its holder; the newcomer is tracked
		// for disconnect bookkeeping only.
		batch = append(batch, push{p, Event{Type: EventBusy, Message: msgBusy}})
	}
	h.mu.Unlock()

	deliver(batch)
}

// Disconnect drops the connection. Only a departing holder triggers a
// broadcast; bystanders leave silently.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)

	var batch []push
	if h.coord.Release(connID) {
		for _, p := range h.conns {
			batch = append(batch, push{p, Event{Type: EventAvailable}})
		}
	}
	h.mu.Unlock()

	deliver(batch)
}

// Status answers an on-demand check from connID: available when the
// machine is free or when the requester is the active holder.
func (h *Hub) Status(connID string) {
	h.mu.Lock()
	p, ok := h.conns[connID]
	h.mu.Unlock()
	if !ok {
		return
	}

	if !h.coord.IsOccupied() || h.coord.IsActiveHolder(connID) {
		p.Push(Event{Type: EventAvailable})
	} else {
		p.Push(Event{Type: EventBusy, Message: msgBusy})
	}
}

// ForceRelease is the administrative override: the previous holder is
// told specifically, then everyone hears the machine is free.
func (h *Hub) ForceRelease() {
	if !h.coord.IsOccupied() {
		return
	}
	prev := h.coord.ForceRelease()

	h.mu.Lock()
	var batch []push
	if p, ok := h.conns[prev]; ok {
		batch = append(batch, push{p, Event{Type: EventForceReleased, Message: msgForceReleased}})
	}
	for _, p := range h.conns {
		batch = append(batch, push{p, Event{Type: EventAvailable}})
	}
	h.mu.Unlock()

	deliver(batch)
}
