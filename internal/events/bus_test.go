package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type memStore struct {
	events []Event
	fail   error
}

func (m *memStore) Insert(_ context.Context, topic, aggregateID string, payload []byte) (Event, error) {
	if m.fail != nil {
		return Event{}, m.fail
	}
	ev := Event{
		ID:          int64(len(m.events) + 1),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []Event
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.seen = append(n.seen, ev)
	return n.fail
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), TopicOrderCreated, "order-1", map[string]any{"total": 47000})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev.ID != 1 || ev.Topic != TopicOrderCreated {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(notifier.seen) != 1 {
		t.Fatalf("notifier saw %d events", len(notifier.seen))
	}
	var payload map[string]any
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["total"] != float64(47000) {
		t.Fatalf("payload = %v", payload)
	}
}

func TestEmitNotifierFailureKeepsEvent(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{fail: errors.New("smtp down")}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	_, err := bus.Emit(context.Background(), TopicOrderCreated, "order-1", nil)
	if err == nil {
		t.Fatal("want joined notifier error")
	}
	if len(store.events) != 1 {
		t.Fatalf("event should persist despite notifier failure, got %d", len(store.events))
	}
}

func TestEmitCatalogUpdated(t *testing.T) {
	store := &memStore{}
	bus := &Bus{Store: store}

	ev, err := bus.Emit(context.Background(), TopicCatalogUpdated, "item-42", map[string]any{
		"slug":        "kashmiri-chilli",
		"retailPrice": int64(98000),
		"stock":       int64(4000),
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev.Topic != TopicCatalogUpdated || ev.AggregateID != "item-42" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	var payload map[string]any
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["slug"] != "kashmiri-chilli" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestEmitValidation(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	if _, err := bus.Emit(context.Background(), "", "agg", nil); err == nil {
		t.Fatal("empty topic must fail")
	}
	if _, err := bus.Emit(context.Background(), "t", " ", nil); err == nil {
		t.Fatal("empty aggregate must fail")
	}
	if _, err := bus.Emit(context.Background(), "t", "agg", []byte("not-json")); err == nil {
		t.Fatal("invalid json payload must fail")
	}
}
