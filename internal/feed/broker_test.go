package feed_test

import (
	"testing"
	"time"

	"github.com/huddlechat/huddle/backend/internal/feed"
)

func TestBrokerDeliversToRoomSubscribers(t *testing.T) {
	broker := feed.NewBroker()
	sub, err := broker.Subscribe("r1")
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	defer sub.Close()

	broker.Publish(feed.Event{Entity: feed.EntityMessage, Op: feed.OpInsert, RoomID: "r1"})

	select {
	case ev := <-sub.C():
		if ev.Entity != feed.EntityMessage {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBrokerIsolatesRooms(t *testing.T) {
	broker := feed.NewBroker()
	sub, _ := broker.Subscribe("r1")
	defer sub.Close()

	broker.Publish(feed.Event{Entity: feed.EntityMessage, Op: feed.OpInsert, RoomID: "r2"})

	select {
	case ev := <-sub.C():
		t.Fatalf("received event for another room: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerCloseStopsDelivery(t *testing.T) {
	broker := feed.NewBroker()
	sub, _ := broker.Subscribe("r1")
	sub.Close()

	// Publishing after close must not panic or deliver.
	broker.Publish(feed.Event{Entity: feed.EntityRoom, Op: feed.OpDelete, RoomID: "r1"})

	if _, open := <-sub.C(); open {
		t.Fatal("expected closed channel after Close")
	}
}

func TestBrokerCloseIsIdempotent(t *testing.T) {
	broker := feed.NewBroker()
	sub, _ := broker.Subscribe("r1")
	sub.Close()
	sub.Close()
}
