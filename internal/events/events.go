package events

import (
	"sync"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// Event types published on the bus.
const (
	TypeTicketCreated = "ticket:created"
)

// Event is a realtime notification fanned out to subscribers. SocketID is
// kept for wire compatibility with clients that filter by originating
// socket; server-side events leave it empty.
type Event struct {
	Type     string         `json:"type"`
	SocketID string         `json:"socketId"`
	Ticket   *models.Ticket `json:"ticket,omitempty"`
}

// TicketCreated builds the event emitted when mail ingestion creates a
// ticket.
func TicketCreated(ticket *models.Ticket) Event {
	return Event{Type: TypeTicketCreated, SocketID: "", Ticket: ticket}
}

// Handler consumes published events.
type Handler func(Event)

// Bus is a small in-process publish/subscribe fanout. Handlers run on the
// publisher's goroutine; they must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every future event.
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Emit delivers the event to every subscriber.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}
