package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"biathlonstats/internal/events"
	"biathlonstats/internal/wshub"
)

func TestNewBroadcaster(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus, nil)
	if b == nil {
		t.Fatal("NewBroadcaster() returned nil")
	}
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus, nil)

	ch := b.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() returned nil")
	}

	b.Mu.Lock()
	if len(b.Clients) != 1 {
		t.Errorf("clients count = %d, want 1", len(b.Clients))
	}
	b.Mu.Unlock()

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	b.Mu.Lock()
	if len(b.Clients) != 0 {
		t.Errorf("clients count after unsubscribe = %d, want 0", len(b.Clients))
	}
	b.Mu.Unlock()
}

func TestBroadcaster_Broadcast(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus, nil)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Broadcast("test-event", map[string]string{"hello": "world"})

	for i, ch := range []chan Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != "test-event" || msg.Data != `{"hello":"world"}` {
				t.Errorf("ch%d got %+v", i+1, msg)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("ch%d timed out", i+1)
		}
	}

	b.Unsubscribe(ch1)
	b.Unsubscribe(ch2)
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus, nil)

	ch := b.Subscribe()

	// Fill the channel buffer (capacity 10)
	for i := 0; i < 10; i++ {
		b.Broadcast("fill", i)
	}

	done := make(chan bool)
	go func() {
		b.Broadcast("overflow", "data")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_ForwardsBusAndReplays(t *testing.T) {
	bus := events.NewBus()
	hub := wshub.NewHub()
	wc := &wshub.Client{ID: "w1", Send: make(chan []byte, 16)}
	hub.Register(wc)
	b := NewBroadcaster(bus, hub)

	ch := b.Subscribe()
	bus.Races <- events.RaceProgress{RaceID: "R1", Status: "used"}
	bus.Finished <- events.RunFinished{Rows: 5}
	bus.Close()

	var got []string
	for msg := range ch {
		got = append(got, msg.Event)
	}
	if len(got) != 2 || got[0] != "race" || got[1] != "done" {
		t.Fatalf("events = %v, want [race done]", got)
	}

	// A late subscriber sees the whole history, then a closed channel.
	late := b.Subscribe()
	n := 0
	for range late {
		n++
	}
	if n != 2 {
		t.Errorf("replayed %d messages, want 2", n)
	}

	var sm wshub.ServerMessage
	if err := json.Unmarshal(<-wc.Send, &sm); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sm.Type != "race" || sm.Race == nil || sm.Race.RaceID != "R1" {
		t.Errorf("hub got %+v, want race R1", sm)
	}
}
