package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Fanout publishes to every backend and joins their errors.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, restaurantID uuid.UUID, eventType string, payload any) error {
	var errs []error
	for _, n := range f {
		if err := n.Publish(ctx, restaurantID, eventType, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Event struct {
	RestaurantID uuid.UUID
	Type         string
	Payload      any
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, restaurantID uuid.UUID, eventType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Event{RestaurantID: restaurantID, Type: eventType, Payload: payload})
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
