package sse

import (
	"context"
	"sync"

	"ms-admission/internal/models"
)

const clientBuffer = 16

type client struct {
	ch         chan models.AdmissionEvent
	passNumber string
}

// AdmissionEventEmitter fans recorded admission attempts out to live feed subscribers.
type AdmissionEventEmitter struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewAdmissionEventEmitter() *AdmissionEventEmitter {
	return &AdmissionEventEmitter{clients: make(map[*client]struct{})}
}

// Subscribe registers a client until ctx is done, then closes its channel.
// An empty passNumber receives every event.
func (e *AdmissionEventEmitter) Subscribe(ctx context.Context, passNumber string) <-chan models.AdmissionEvent {
	c := &client{ch: make(chan models.AdmissionEvent, clientBuffer), passNumber: passNumber}

	e.mu.Lock()
	e.clients[c] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.clients, c)
		close(c.ch)
		e.mu.Unlock()
	}()

	return c.ch
}

// Emit never blocks: a subscriber whose buffer is full misses the event.
func (e *AdmissionEventEmitter) Emit(event models.AdmissionEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for c := range e.clients {
		if c.passNumber != "" && c.passNumber != event.PassNumber {
			continue
		}
		select {
		case c.ch <- event:
		default:
		}
	}
}

func (e *AdmissionEventEmitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}
