package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"biathlonstats/internal/events"
	"biathlonstats/internal/wshub"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  string
}

// Broadcaster fans a run's event bus out to SSE subscribers and, when set, a
// websocket hub. Subscribers joining late get the history replayed.
type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool
	history []Message
	done    bool
	hub     *wshub.Hub
}

func NewBroadcaster(bus *events.Bus, hub *wshub.Hub) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan Message]bool),
		hub:     hub,
	}
	go b.forward(bus)
	return b
}

// forward drains race events, then the completion event, until the bus is
// closed.
func (b *Broadcaster) forward(bus *events.Bus) {
	for ev := range bus.Races {
		b.Broadcast("race", ev)
		if b.hub != nil {
			b.hub.Broadcast(wshub.ServerMessage{Type: "race", Race: &ev})
		}
	}
	for ev := range bus.Finished {
		b.Broadcast("done", ev)
		if b.hub != nil {
			b.hub.Broadcast(wshub.ServerMessage{Type: "done", Done: &ev})
		}
	}
	b.finish()
}

func (b *Broadcaster) Subscribe() chan Message {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	ch := make(chan Message, len(b.history)+10)
	for _, m := range b.history {
		ch <- m
	}
	if b.done {
		close(ch)
		return ch
	}
	b.Clients[ch] = true
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if b.Clients[ch] {
		delete(b.Clients, ch)
		close(ch)
	}
}

// Broadcast sends v as JSON to every subscriber. Non-blocking: clients with
// full channels miss the message.
func (b *Broadcaster) Broadcast(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("[Broadcast] marshal failed", slog.String("event", event), slog.Any("error", err))
		return
	}
	msg := Message{Event: event, Data: string(data)}

	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.history = append(b.history, msg)
	for ch := range b.Clients {
		select {
		case ch <- msg:
		default:
			// skip clients with full data channels
		}
	}
}

// Done reports whether the bus has been closed.
func (b *Broadcaster) Done() bool {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return b.done
}

func (b *Broadcaster) finish() {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.done = true
	for ch := range b.Clients {
		close(ch)
		delete(b.Clients, ch)
	}
}
