package eventbus

import "sync"

// Topics published inside the gateway process.
const (
	TopicPricesUpdated = "prices.updated"
	TopicQuoteIssued   = "quote.issued"
)

// Handler is a function that handles an event
type Handler func(event any)

// Bus provides in-process pub/sub by topic. Handlers run on their own
// goroutines; publishers never block on subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New creates a new Bus
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish delivers an event to all handlers subscribed to the topic.
func (b *Bus) Publish(topic string, event any) {
	b.mu.RLock()
	handlers := b.handlers[topic]
	b.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}
