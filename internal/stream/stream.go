// Package stream fans out inventory movement events to live subscribers
// (SSE clients watching the asset dashboard).
package stream

import (
	"context"
	"sync"
	"time"
)

// MovementEvent describes one recorded movement for live consumers.
type MovementEvent struct {
	Kind          string    `json:"kind"`
	RecordID      string    `json:"record_id"`
	Base          string    `json:"base,omitempty"`
	EquipmentType string    `json:"equipment_type,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Stream fan-outs movement events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan MovementEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan MovementEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan MovementEvent {
	ch := make(chan MovementEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. Slow subscribers have the
// event dropped rather than blocking the publisher.
func (s *Stream) Publish(evt MovementEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
