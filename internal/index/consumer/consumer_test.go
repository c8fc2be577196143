package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/kafka"
)

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) ReloadIndex(context.Context) (index.Stats, error) {
	f.calls++
	return index.Stats{Terms: 3}, f.err
}

type fakePublisher struct {
	events []kafka.Event
}

func (f *fakePublisher) Publish(_ context.Context, e kafka.Event) error {
	f.events = append(f.events, e)
	return nil
}

func TestHandleMessageReloads(t *testing.T) {
	r := &fakeReloader{}
	value, _ := json.Marshal(IndexUpdatedEvent{Source: "redis", Terms: 3})
	if err := HandleMessage(r)(context.Background(), []byte("redis"), value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.calls != 1 {
		t.Errorf("expected 1 reload, got %d", r.calls)
	}
}

func TestHandleMessageSkipsGarbage(t *testing.T) {
	r := &fakeReloader{}
	if err := HandleMessage(r)(context.Background(), nil, []byte("{broken")); err != nil {
		t.Fatalf("expected garbage to be skipped, got %v", err)
	}
	if r.calls != 0 {
		t.Errorf("expected no reload, got %d", r.calls)
	}
}

func TestHandleMessageReturnsReloadError(t *testing.T) {
	loadErr := errors.New("source down")
	r := &fakeReloader{err: loadErr}
	value, _ := json.Marshal(IndexUpdatedEvent{Source: "postgres"})
	err := HandleMessage(r)(context.Background(), nil, value)
	if !errors.Is(err, loadErr) {
		t.Fatalf("expected reload error, got %v", err)
	}
}

func TestNotifySetsTimestampAndKey(t *testing.T) {
	p := &fakePublisher{}
	if err := Notify(context.Background(), p, IndexUpdatedEvent{Source: "redis", Terms: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.events) != 1 || p.events[0].Key != "redis" {
		t.Fatalf("unexpected events: %+v", p.events)
	}
	event := p.events[0].Value.(IndexUpdatedEvent)
	if event.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}
