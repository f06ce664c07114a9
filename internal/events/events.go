// Package events fans successful download notifications out to
// subscribers. It replaces a single settable callback slot with a
// multi-subscriber publisher.
package events

import (
	"sync"
	"time"
)

// Download describes one resolved download redirect.
type Download struct {
	Repo     string
	Channel  string
	Platform string
	Asset    string
	Time     time.Time
}

type Publisher struct {
	mu   sync.RWMutex
	subs map[int]chan Download
	next int
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan Download)}
}

// Subscribe registers a new subscriber and returns its channel along with
// an unsubscribe function. The channel is closed on unsubscribe.
func (p *Publisher) Subscribe(buffer int) (<-chan Download, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.next
	p.next++
	ch := make(chan Download, buffer)
	p.subs[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
}

// Publish delivers the event to every subscriber without blocking; a
// subscriber with a full buffer misses the event.
func (p *Publisher) Publish(d Download) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, sub := range p.subs {
		select {
		case sub <- d:
		default:
		}
	}
}
