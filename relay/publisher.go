package relay

import "sync"

// Имена событий, которые получают браузеры.
const (
	EventTournaments   = "tournaments:update"
	EventSubscriptions = "subscriptions:update"
	EventLeaderboard   = "leaderboard:update"
	EventMemory        = "memory:update"
	EventUser          = "user:update"
	EventNotification  = "notification"
	EventProfile       = "profile:update"
)

// Publisher рассылает уведомление о мутации. Доставка не гарантируется, ошибок нет.
type Publisher interface {
	Publish(event string, payload any)
}

// Message is the frame sent to clients.
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Fanout publishes every event to all of its publishers.
type Fanout []Publisher

func (f Fanout) Publish(event string, payload any) {
	for _, p := range f {
		if p != nil {
			p.Publish(event, payload)
		}
	}
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(string, any) {}

// Recorder keeps published messages in memory. Used by tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Publish(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Event: event, Payload: payload})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Events returns the messages with the given event name.
func (r *Recorder) Events(event string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}
